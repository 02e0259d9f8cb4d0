package vulkan

import (
	"bytes"
	"os"
	"testing"

	vk "github.com/goki/vulkan"
	"github.com/spaghettifunk/nya/engine/core"
	"github.com/stretchr/testify/assert"
)

func TestDebugReportCallbackLevels(t *testing.T) {
	var buf bytes.Buffer
	core.SetLogOutput(&buf)
	defer core.SetLogOutput(os.Stderr)

	tests := []struct {
		flags  vk.DebugReportFlagBits
		prefix string
	}{
		{vk.DebugReportErrorBit, "[Validation]"},
		{vk.DebugReportWarningBit, "[Validation]"},
		{vk.DebugReportPerformanceWarningBit, "PERFORMANCE: [Validation]"},
	}
	for _, tt := range tests {
		buf.Reset()
		ret := dbgCallbackFunc(vk.DebugReportFlags(tt.flags), vk.DebugReportObjectTypeUnknown, 0, 0, 42,
			"Validation", "vkQueueSubmit: 100% of fences busy", nil)
		assert.Equal(t, vk.Bool32(vk.False), ret)
		assert.Contains(t, buf.String(), tt.prefix)
		assert.Contains(t, buf.String(), "Code 42")
		assert.Contains(t, buf.String(), "100% of fences busy")
	}
}
