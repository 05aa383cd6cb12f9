package models

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStageDetailsTaggedJSON(t *testing.T) {
	start := time.Date(2024, 3, 1, 10, 0, 0, 0, time.UTC)
	end := start.Add(2 * time.Hour)
	details := StageDetails{Metadata: Interview{LinkOrVenue: "https://meet.example/abc", Online: true, Window: TimeWindow{Start: &start, End: &end}}}

	raw, err := json.Marshal(details)
	require.NoError(t, err)
	assert.JSONEq(t, `{"kind":"INTERVIEW","linkOrVenue":"https://meet.example/abc","online":true,"window":{"start":"2024-03-01T10:00:00Z","end":"2024-03-01T12:00:00Z"}}`, string(raw))

	var decoded StageDetails
	require.NoError(t, decoded.Scan(raw))
	interview, ok := decoded.Metadata.(Interview)
	require.True(t, ok)
	assert.True(t, interview.Online)
	assert.Equal(t, StageInterview, decoded.Metadata.Stage())
}

func TestStageDetailsEmptyRoundTrip(t *testing.T) {
	value, err := StageDetails{}.Value()
	require.NoError(t, err)
	assert.Equal(t, []byte("{}"), value)

	d := StageDetails{Metadata: FinalSelection{}}
	require.NoError(t, d.Scan(value))
	assert.Nil(t, d.Metadata)

	d = StageDetails{Metadata: FinalSelection{}}
	require.NoError(t, d.Scan("{}"))
	assert.Nil(t, d.Metadata)

	require.NoError(t, d.Scan(nil))
	assert.Nil(t, d.Metadata)

	raw, err := json.Marshal(d)
	require.NoError(t, err)
	assert.Equal(t, "null", string(raw))
}

func TestStageDetailsUnknownKind(t *testing.T) {
	var d StageDetails

	assert.Error(t, d.Scan([]byte(`{"kind":"TELEPATHY"}`)))
}

func TestStageSummaries(t *testing.T) {
	assert.Equal(t, "Online assessment link: http://oa.test", OnlineAssessment{Link: "http://oa.test"}.Summary())
	assert.Equal(t, "Interview venue: Block C, Room 4", Interview{LinkOrVenue: "Block C, Room 4"}.Summary())
	assert.Equal(t, "Final selection", FinalSelection{}.Summary())
}

func TestIsOnlineVenue(t *testing.T) {
	assert.True(t, IsOnlineVenue("HTTPS://teams.example/x"))
	assert.True(t, IsOnlineVenue("Google Meet"))
	assert.True(t, IsOnlineVenue("zoom room 4"))
	assert.False(t, IsOnlineVenue("Seminar Hall 2"))
}

func TestStatusTerminal(t *testing.T) {
	assert.True(t, ParticipationSelected.Terminal())
	assert.True(t, ParticipationRejected.Terminal())
	assert.False(t, ParticipationAttempted.Terminal())
	assert.False(t, ParticipationStatus("UNKNOWN").Valid())
}

func TestEventTimelineAndRegistrationWindow(t *testing.T) {
	start := time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC)
	end := start.Add(48 * time.Hour)
	e := Event{RegistrationStart: start, RegistrationEnd: end}

	assert.Equal(t, TimelineUpcoming, e.Timeline(start.Add(-time.Hour)))
	assert.Equal(t, TimelineOngoing, e.Timeline(start.Add(time.Hour)))
	assert.Equal(t, TimelinePast, e.Timeline(end.Add(time.Second)))
	assert.True(t, e.RegistrationOpen(end))
	assert.False(t, e.RegistrationOpen(end.Add(time.Nanosecond)))
}
