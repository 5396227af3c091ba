package errors

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type recordingReporter struct {
	reported []*EnhancedError
}

func (r *recordingReporter) ReportError(err *EnhancedError) { r.reported = append(r.reported, err) }
func (r *recordingReporter) IsEnabled() bool               { return true }

func TestBuild_Defaults(t *testing.T) {
	ee := New(NewStd("boom")).Build()

	assert.Equal(t, "boom", ee.Error())
	assert.Equal(t, ComponentUnknown, ee.Component)
	assert.Equal(t, CategoryGeneric, ee.Category)
	assert.False(t, ee.Timestamp.IsZero())
}

func TestBuild_InheritsCategoryFromWrapped(t *testing.T) {
	inner := New(NewStd("disk gone")).Category(CategoryDatabase).Build()
	outer := New(inner).Component("labels").Build()

	assert.Equal(t, CategoryDatabase, outer.Category)
	assert.True(t, IsCategory(outer, CategoryDatabase))
}

func TestEnhancedError_IsMatchesCategoryAndWrapped(t *testing.T) {
	sentinel := NewStd("label not found")
	ee := New(sentinel).Category(CategoryNotFound).Build()

	assert.True(t, Is(ee, sentinel))
	assert.True(t, Is(ee, &EnhancedError{Category: CategoryNotFound}))
	assert.False(t, Is(ee, &EnhancedError{Category: CategoryDatabase}))
	assert.True(t, IsNotFound(ee))
}

func TestPriority_InvalidFallsBackToMedium(t *testing.T) {
	ee := New(NewStd("x")).Priority("urgent").Build()
	assert.Equal(t, PriorityMedium, ee.Priority)
}

func TestContext_ReturnsCopy(t *testing.T) {
	ee := New(NewStd("x")).Context("provider", "vision").Build()

	ctx := ee.GetContext()
	ctx["provider"] = "mutated"

	assert.Equal(t, "vision", ee.GetContext()["provider"])
}

func TestTelemetry_OnlyReportableCategories(t *testing.T) {
	reporter := &recordingReporter{}
	SetTelemetryReporter(reporter)
	t.Cleanup(func() { SetTelemetryReporter(nil) })

	New(NewStd("db down")).Category(CategoryDatabase).Build()
	New(NewStd("bad input")).Category(CategoryValidation).Build()

	require.Len(t, reporter.reported, 1)
	assert.Equal(t, "db down", reporter.reported[0].Error())
}

func TestScrubMessageForPrivacy(t *testing.T) {
	got := scrubMessageForPrivacy("open /var/lib/app/images/cat.jpg via https://example.com/x?k=1")
	assert.NotContains(t, got, "/var/lib")
	assert.NotContains(t, got, "example.com")
}
