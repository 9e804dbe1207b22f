package export

import (
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/cerulean-labs/growth-hub/internal/application/query"
	"github.com/cerulean-labs/growth-hub/internal/domain/engagement"
	"github.com/cerulean-labs/growth-hub/internal/domain/referral"
)

var exportNow = time.Date(2025, time.July, 9, 12, 0, 0, 0, time.UTC)

func testSnapshot(t *testing.T) *query.ExportSnapshot {
	t.Helper()

	completed := exportNow.Add(time.Hour)
	return &query.ExportSnapshot{
		BatchID:     uuid.MustParse("a1b2c3d4-0000-0000-0000-000000000000"),
		GeneratedAt: exportNow,
		Ambassadors: []*referral.Ambassador{
			{Identity: 100, DisplayName: "aruzhan", Points: 3, CreatedAt: exportNow},
		},
		Relationships: []*referral.AmbassadorReferral{
			{Referred: 200, Referrer: 100, Status: referral.StatusCompleted, JoinedAt: exportNow},
		},
		Contest: []*referral.ContestReferral{
			{Referred: 300, Referrer: 100, DisplayName: "dana", Status: referral.StatusCompleted, Period: "2025-07", CompletedAt: &completed},
			{Referred: 301, Referrer: 100, DisplayName: "erlan", Status: referral.StatusPending, Period: "2025-07"},
		},
		Engagement: []*engagement.Entry{
			{Identity: 100, DisplayName: "aruzhan", MessageCount: 5, Period: "2025-W28", LastActivityAt: exportNow},
		},
	}
}

func TestBuildFiles_NamesAndCaptions(t *testing.T) {
	files, err := BuildFiles(testSnapshot(t))
	require.NoError(t, err)
	require.Len(t, files, 4)

	assert.Equal(t, "ambassadors_a1b2c3d4.csv", files[0].Name)
	assert.Equal(t, "ambassador_referrals_a1b2c3d4.csv", files[1].Name)
	assert.Equal(t, "referrals_a1b2c3d4.csv", files[2].Name)
	assert.Equal(t, "engagement_a1b2c3d4.csv", files[3].Name)

	assert.Equal(t, "📂 Ambassadors Data", files[0].Caption)
	assert.Equal(t, "📂 Engagement Data", files[3].Caption)
}

func TestBuildFiles_AmbassadorRows(t *testing.T) {
	files, err := BuildFiles(testSnapshot(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(files[0].Content)), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "User ID,Username,Points,Created At", lines[0])
	assert.Equal(t, "100,aruzhan,3,2025-07-09T12:00:00Z", lines[1])
}

func TestBuildFiles_ContestNullableCompletedAt(t *testing.T) {
	files, err := BuildFiles(testSnapshot(t))
	require.NoError(t, err)

	lines := strings.Split(strings.TrimSpace(string(files[2].Content)), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "User ID,Referrer ID,Username,Status,Period,Completed At", lines[0])
	assert.Equal(t, "300,100,dana,completed,2025-07,2025-07-09T13:00:00Z", lines[1])
	// Pending rows leave the completion cell empty.
	assert.True(t, strings.HasSuffix(lines[2], ","))
	assert.Contains(t, lines[2], "301,100,erlan,pending,2025-07")
}

func TestBuildFiles_EmptySnapshotStillHasHeaders(t *testing.T) {
	files, err := BuildFiles(&query.ExportSnapshot{BatchID: uuid.New()})
	require.NoError(t, err)
	require.Len(t, files, 4)

	for _, f := range files {
		lines := strings.Split(strings.TrimSpace(string(f.Content)), "\n")
		assert.Len(t, lines, 1)
	}
}
