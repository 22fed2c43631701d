package errors

import (
	"fmt"
	"strings"
	"testing"

	"github.com/getsentry/sentry-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var errSentinel = NewStd("sentinel")

func TestFastPathNoTelemetry(t *testing.T) {
	SetTelemetryReporter(nil)

	ee := New(fmt.Errorf("test error")).Build()

	assert.Equal(t, "test error", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.GetComponent())
	assert.Equal(t, CategoryGeneric, ee.Category)
}

func TestEnhancedErrorMatchesWrappedSentinel(t *testing.T) {
	t.Parallel()

	ee := Newf("%w: item 42", errSentinel).
		Component("inspection").
		Category(CategoryLocked).
		Context("item_id", "42").
		Build()

	require.ErrorIs(t, ee, errSentinel)
	assert.True(t, IsCategory(ee, CategoryLocked))
	assert.False(t, IsNotFound(ee))
	assert.Equal(t, "42", ee.GetContext()["item_id"])

	wrapped := fmt.Errorf("outer: %w", ee)
	assert.True(t, IsCategory(wrapped, CategoryLocked))
}

func TestCategoryInheritedFromWrappedEnhancedError(t *testing.T) {
	t.Parallel()

	inner := New(errSentinel).Category(CategoryStore).Build()
	outer := New(fmt.Errorf("persist: %w", inner)).Build()

	assert.Equal(t, CategoryStore, outer.Category)
}

func TestGetContextReturnsCopy(t *testing.T) {
	t.Parallel()

	ee := New(errSentinel).Context("k", "v").Build()
	ctx := ee.GetContext()
	ctx["k"] = "changed"

	assert.Equal(t, "v", ee.GetContext()["k"])
}

func TestFileContextAnonymizesName(t *testing.T) {
	t.Parallel()

	ee := New(errSentinel).FileContext("/home/alice/leak.PNG", 9*1024*1024).Build()

	assert.Equal(t, "png", ee.GetContext()["file_extension"])
	assert.Equal(t, "medium", ee.GetContext()["file_size_category"])
	for _, v := range ee.GetContext() {
		assert.NotContains(t, fmt.Sprint(v), "alice")
	}
}

func TestScrubMessageForPrivacy(t *testing.T) {
	t.Parallel()

	scrubbed := scrubMessageForPrivacy("dial https://db.example.com/x?password=hunter2 failed for user_id=abc token=xyz")

	assert.Contains(t, scrubbed, "https://db.example.com/x?[REDACTED]")
	assert.NotContains(t, scrubbed, "hunter2")
	assert.NotContains(t, scrubbed, "abc")
	assert.False(t, strings.Contains(scrubbed, "xyz"))
}

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) IsEnabled() bool               { return true }
func (r *recordingReporter) ReportError(ee *EnhancedError) { r.reported = append(r.reported, ee) }

func TestReporterReceivesBuiltErrors(t *testing.T) {
	rec := &recordingReporter{}
	SetTelemetryReporter(rec)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	New(errSentinel).Component("datastore").Category(CategoryStore).Build()

	require.Len(t, rec.reported, 1)
	assert.Equal(t, "datastore", rec.reported[0].GetComponent())
}

func TestSentryReporterSkipsBusinessOutcomes(t *testing.T) {
	t.Parallel()

	assert.False(t, isReportable(CategoryLocked))
	assert.False(t, isReportable(CategoryForbidden))
	assert.True(t, isReportable(CategoryStore))
}

func TestErrorLevelPrefersExplicitPriority(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		category ErrorCategory
		priority string
		want     sentry.Level
	}{
		{"category fallback error", CategoryStore, "", sentry.LevelError},
		{"category fallback warning", CategoryFileIO, "", sentry.LevelWarning},
		{"critical", CategoryStore, PriorityCritical, sentry.LevelFatal},
		{"low overrides category", CategoryStore, PriorityLow, sentry.LevelInfo},
		{"unknown priority becomes medium", CategoryStore, "urgent", sentry.LevelWarning},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			ee := Newf("write failed").Category(tt.category).Priority(tt.priority).Build()
			assert.Equal(t, tt.want, errorLevel(ee))
			assert.False(t, ee.GetTimestamp().IsZero())
		})
	}
}
