package compute

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/underlx/delaywatch/dataobjects"
)

type fakeReader struct {
	departures    []*dataobjects.Departure
	err           error
	criteria      dataobjects.Criteria
	filteredCalls int
	platformCalls int
	platform      dataobjects.PlatformInfo
}

func (r *fakeReader) LatestDepartures(limit int) ([]*dataobjects.Departure, error) {
	return r.departures, r.err
}

func (r *fakeReader) FilteredDepartures(criteria dataobjects.Criteria, limit int) ([]*dataobjects.Departure, error) {
	r.filteredCalls++
	r.criteria = criteria
	return r.departures, r.err
}

func (r *fakeReader) LastKnownPlatform(trainNumber string) (dataobjects.PlatformInfo, error) {
	r.platformCalls++
	return r.platform, r.err
}

func departuresWithDelays(delays ...int) []*dataobjects.Departure {
	departures := []*dataobjects.Departure{}
	for _, delay := range delays {
		departures = append(departures, &dataobjects.Departure{
			CapturedAt:   time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local),
			TrainNumber:  "R 1",
			DelayMinutes: delay,
		})
	}
	return departures
}

func TestViewBuilderAnnotatesRows(t *testing.T) {
	reader := &fakeReader{departures: departuresWithDelays(0, 7, -2, 3, 20)}
	view := NewViewBuilder(reader, nil).Latest(50)

	require.True(t, view.OK())
	assert.Empty(t, view.Reason)
	bands := []Band{}
	for _, row := range view.Rows {
		bands = append(bands, row.Band)
	}
	assert.Equal(t, []Band{BandOnTime, BandModerate, BandEarly, BandMinor, BandSevere}, bands)
	assert.Equal(t, "early by 2 min", view.Rows[2].Label)
	assert.Equal(t, "medium", view.Rows[1].Emphasis)
	assert.Equal(t, "red", view.Rows[4].Color)
}

func TestViewBuilderBandFilter(t *testing.T) {
	reader := &fakeReader{departures: departuresWithDelays(0, 7, -2, 3, 20)}
	view := NewViewBuilder(reader, nil).Latest(50, BandModerate, BandSevere)

	require.Len(t, view.Rows, 2)
	assert.Equal(t, 7, view.Rows[0].DelayMinutes)
	assert.Equal(t, 20, view.Rows[1].DelayMinutes)
}

func TestViewBuilderFilteredUsesCriteria(t *testing.T) {
	reader := &fakeReader{departures: departuresWithDelays(1)}
	b := NewViewBuilder(reader, nil)

	b.Filtered(dataobjects.Criteria{}, 50)
	assert.Equal(t, 0, reader.filteredCalls)

	criteria := dataobjects.Criteria{DatePrefix: "2024-05-01", TrainNumber: "R 1"}
	view := b.Filtered(criteria, 50)
	assert.Equal(t, 1, reader.filteredCalls)
	assert.Equal(t, criteria, reader.criteria)
	assert.Len(t, view.Rows, 1)
}

func TestViewBuilderErrorsBecomeEmptyViews(t *testing.T) {
	reader := &fakeReader{err: dataobjects.ErrInvalidFilter}
	view := NewViewBuilder(reader, nil).Filtered(dataobjects.Criteria{Hour: "99"}, 50)

	assert.False(t, view.OK())
	assert.NotNil(t, view.Rows)
	assert.Empty(t, view.Rows)
	assert.Equal(t, "invalid filter", view.Reason)
	assert.True(t, errors.Is(view.Err, dataobjects.ErrInvalidFilter))
}

func TestViewBuilderPlatform(t *testing.T) {
	reader := &fakeReader{platform: dataobjects.PlatformInfo{TrainNumber: "R 1", Platform: "3", Known: true}}
	b := NewViewBuilder(reader, nil)

	assert.Equal(t, "3", b.Platform("R 1").Platform)
	assert.Equal(t, "3", b.Platform(" R 1 ").Platform)
	// known platforms are served from cache
	assert.Equal(t, 1, reader.platformCalls)
}

func TestViewBuilderPlatformFailureIsUnknown(t *testing.T) {
	reader := &fakeReader{err: errors.New("connection refused")}
	info := NewViewBuilder(reader, nil).Platform("R 1")

	assert.False(t, info.Known)
	assert.Equal(t, dataobjects.UnknownPlatform, info.Platform)
	assert.Equal(t, "R 1", info.TrainNumber)
}
