// Package export renders tracking data snapshots as CSV attachments.
// The files mirror the live tables so operators can pull them into a
// spreadsheet without further transformation.
package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"strconv"
	"time"

	"github.com/cerulean-labs/growth-hub/internal/application/query"
)

// File is one CSV attachment ready to send.
type File struct {
	// Name is the filename, unique per export batch.
	Name string

	// Content is the CSV body.
	Content []byte

	// Caption labels the attachment in the chat.
	Caption string
}

// timeFormat is the timestamp layout used in CSV cells.
const timeFormat = time.RFC3339

// BuildFiles renders one snapshot into its CSV attachments. The batch ID is
// embedded in every filename so a given file can be traced back in logs.
func BuildFiles(snapshot *query.ExportSnapshot) ([]File, error) {
	batch := snapshot.BatchID.String()[:8]

	ambassadors, err := ambassadorsCSV(snapshot)
	if err != nil {
		return nil, fmt.Errorf("export ambassadors: %w", err)
	}

	relationships, err := relationshipsCSV(snapshot)
	if err != nil {
		return nil, fmt.Errorf("export relationships: %w", err)
	}

	contest, err := contestCSV(snapshot)
	if err != nil {
		return nil, fmt.Errorf("export contest: %w", err)
	}

	activity, err := engagementCSV(snapshot)
	if err != nil {
		return nil, fmt.Errorf("export engagement: %w", err)
	}

	return []File{
		{Name: fmt.Sprintf("ambassadors_%s.csv", batch), Content: ambassadors, Caption: "📂 Ambassadors Data"},
		{Name: fmt.Sprintf("ambassador_referrals_%s.csv", batch), Content: relationships, Caption: "📂 Ambassador Referrals Data"},
		{Name: fmt.Sprintf("referrals_%s.csv", batch), Content: contest, Caption: "📂 Referrals Data"},
		{Name: fmt.Sprintf("engagement_%s.csv", batch), Content: activity, Caption: "📂 Engagement Data"},
	}, nil
}

func ambassadorsCSV(snapshot *query.ExportSnapshot) ([]byte, error) {
	return writeCSV([]string{"User ID", "Username", "Points", "Created At"}, len(snapshot.Ambassadors), func(i int) []string {
		a := snapshot.Ambassadors[i]
		return []string{
			strconv.FormatInt(int64(a.Identity), 10),
			a.DisplayName,
			strconv.Itoa(a.Points),
			a.CreatedAt.UTC().Format(timeFormat),
		}
	})
}

func relationshipsCSV(snapshot *query.ExportSnapshot) ([]byte, error) {
	return writeCSV([]string{"User ID", "Referrer ID", "Status", "Joined At"}, len(snapshot.Relationships), func(i int) []string {
		r := snapshot.Relationships[i]
		return []string{
			strconv.FormatInt(int64(r.Referred), 10),
			strconv.FormatInt(int64(r.Referrer), 10),
			string(r.Status),
			r.JoinedAt.UTC().Format(timeFormat),
		}
	})
}

func contestCSV(snapshot *query.ExportSnapshot) ([]byte, error) {
	return writeCSV([]string{"User ID", "Referrer ID", "Username", "Status", "Period", "Completed At"}, len(snapshot.Contest), func(i int) []string {
		c := snapshot.Contest[i]
		completedAt := ""
		if c.CompletedAt != nil {
			completedAt = c.CompletedAt.UTC().Format(timeFormat)
		}
		return []string{
			strconv.FormatInt(int64(c.Referred), 10),
			strconv.FormatInt(int64(c.Referrer), 10),
			c.DisplayName,
			string(c.Status),
			string(c.Period),
			completedAt,
		}
	})
}

func engagementCSV(snapshot *query.ExportSnapshot) ([]byte, error) {
	return writeCSV([]string{"User ID", "Username", "Messages", "Period", "Last Message"}, len(snapshot.Engagement), func(i int) []string {
		e := snapshot.Engagement[i]
		return []string{
			strconv.FormatInt(int64(e.Identity), 10),
			e.DisplayName,
			strconv.Itoa(e.MessageCount),
			string(e.Period),
			e.LastActivityAt.UTC().Format(timeFormat),
		}
	})
}

// writeCSV renders a header plus n rows produced by the row func.
func writeCSV(header []string, n int, row func(i int) []string) ([]byte, error) {
	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	if err := w.Write(header); err != nil {
		return nil, err
	}
	for i := 0; i < n; i++ {
		if err := w.Write(row(i)); err != nil {
			return nil, err
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
