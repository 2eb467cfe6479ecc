package telegram

import (
	"errors"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/rewired-gh/tetrascan/internal/models"
	"github.com/rewired-gh/tetrascan/internal/storage"
)

type fakeBot struct {
	failures int
	calls    int
	last     tgbotapi.MessageConfig
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.calls++
	f.last = c.(tgbotapi.MessageConfig)
	if f.calls <= f.failures {
		return tgbotapi.Message{}, errors.New("too many requests")
	}
	return tgbotapi.Message{MessageID: f.calls}, nil
}

func testClient(t *testing.T, bot *fakeBot, retries int) (*Client, *[]time.Duration) {
	t.Helper()
	c, err := newClient(bot, "-100123", retries, time.Second)
	require.NoError(t, err)
	var slept []time.Duration
	c.sleep = func(d time.Duration) { slept = append(slept, d) }
	return c, &slept
}

func TestEscapeMarkdownV2(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"PR_01", `PR\_01`},
		{"2015_01_01", `2015\_01\_01`},
		{"t=1.5 (ave)", `t\=1\.5 \(ave\)`},
		{"plain", "plain"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, escapeMarkdownV2(tt.in))
	}
}

func TestNewClientRejectsBadChatID(t *testing.T) {
	_, err := newClient(&fakeBot{}, "not-a-number", 3, time.Second)
	assert.Error(t, err)
}

func TestSendRetriesWithLinearBackoff(t *testing.T) {
	bot := &fakeBot{failures: 2}
	c, slept := testClient(t, bot, 3)

	require.NoError(t, c.Send(Report{StartDate: "2015_01_01", DurationDays: 1, Threshold: 30}))
	assert.Equal(t, 3, bot.calls)
	assert.Equal(t, []time.Duration{time.Second, 2 * time.Second}, *slept)
	assert.Equal(t, int64(-100123), bot.last.ChatID)
	assert.Equal(t, tgbotapi.ModeMarkdownV2, bot.last.ParseMode)
}

func TestSendGivesUp(t *testing.T) {
	bot := &fakeBot{failures: 10}
	c, slept := testClient(t, bot, 2)

	err := c.Send(Report{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "after 2 retries")
	assert.Equal(t, 2, bot.calls)
	assert.Len(t, *slept, 1)
}

func TestBuildReportAndFormat(t *testing.T) {
	store := storage.New()

	res := models.NewScanResult("PR_01")
	res.AddEvent(models.EventWindow{
		ID:        "e1",
		StationID: "PR_01",
		Trigger:   models.Trigger{BinIndex: 600, Timestamp: 1.2, Count: 200, SigmaLevel: 42},
	}, models.EventInfo{BaselineMean: 2.5, TriggerThreshold: 120, DayLabel: "2016_02_01"})
	res.AddError("PR_01 2016_02_02: could not find file")
	require.NoError(t, store.PutResult(res))
	require.NoError(t, store.PutResult(models.NewScanResult("LSU_01")))
	store.PutFailure("PA_03", errors.New("base path missing"))

	report := BuildReport(store, "2016_02_01", 2, 30, 5)
	require.Len(t, report.Stations, 3)
	assert.Equal(t, "LSU_01", report.Stations[0].StationID)
	assert.Equal(t, "PA_03", report.Stations[1].StationID)
	assert.Equal(t, "base path missing", report.Stations[1].Failure)
	assert.Equal(t, StationLine{StationID: "PR_01", Events: 1, Errors: 1}, report.Stations[2])
	require.Len(t, report.Top, 1)

	msg := formatMessage(report)
	assert.True(t, strings.HasPrefix(msg, "⚡ *Scan Summary*"))
	assert.Contains(t, msg, `2016\_02\_01, 2 day\(s\), threshold 30σ`)
	assert.Contains(t, msg, `• PR\_01: *1* events, 1 errors`)
	assert.Contains(t, msg, `• LSU\_01: *0* events`)
	assert.Contains(t, msg, `❌ PA\_03: base path missing`)
	assert.Contains(t, msg, `1\. *42σ* PR\_01 2016\_02\_01 t\=1\.200s count\=200 \(ave 2\.500, min 120\)`)
}
