package utils

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestUtils_FormatTime(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("250ms", FormatTime(250*time.Millisecond))
	assert.Equal("1.50s", FormatTime(1500*time.Millisecond))
	assert.Equal("2m5s", FormatTime(125*time.Second+300*time.Millisecond))
	assert.Equal("1h1m1s", FormatTime(time.Hour+time.Minute+time.Second))
	assert.Equal("24h0m0s", FormatTime(24*time.Hour))
}

func TestUtils_FormatBytes(t *testing.T) {
	assert := assert.New(t)

	assert.Equal("512 B", FormatBytes(512))
	assert.Equal("1.5 KB", FormatBytes(1536))
	assert.Equal("2.0 MB", FormatBytes(2<<20))
}

func TestUtils_DecorateText(t *testing.T) {
	assert.Equal(t, ErrorColor+"failed"+DefaultColor, DecorateText("failed", ErrorMessage))
	assert.Equal(t, "plain", DecorateText("plain", MessageType(42)))
	assert.Equal(t, WarningColor+"slow"+DefaultColor, DecorateText("slow", WarningMessage))
}

func TestUtils_StatusLine(t *testing.T) {
	assert := assert.New(t)

	line := StatusLine("converting", SuccessMessage)
	assert.Equal(StatusColor+Brand+DefaultColor+" "+SuccessColor+"converting"+DefaultColor, line)

	notice := FallbackNotice("avif", "webp")
	assert.Contains(notice, "avif is not supported, the image was saved as webp")
	assert.True(strings.HasPrefix(notice, WarningColor))
}

func TestUtils_Spinner(t *testing.T) {
	var buf bytes.Buffer

	s := NewSpinner(&buf, "exporting", time.Millisecond, false)
	s.StopMsg = "done\n"
	s.Start()
	s.Start()
	time.Sleep(5 * time.Millisecond)
	s.Stop()
	s.Stop()

	out := buf.String()
	assert.Contains(t, out, "exporting")
	assert.True(t, strings.HasSuffix(out, "done\n"))
}

func TestUtils_SpinnerSetMessage(t *testing.T) {
	var buf bytes.Buffer

	s := NewSpinner(&buf, "converting", time.Millisecond, false)
	s.SetMessage("saving")
	s.Start()
	time.Sleep(5 * time.Millisecond)
	s.Stop()

	assert.Contains(t, buf.String(), "saving")
	assert.NotContains(t, buf.String(), "converting")
}
