package report

import (
	"bytes"
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"detailing/internal/models"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

type mockLister struct {
	mock.Mock
}

func (m *mockLister) List(ctx context.Context) ([]models.Booking, error) {
	args := m.Called(ctx)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]models.Booking), args.Error(1)
}

type captureSender struct {
	filename string
	caption  string
	data     []byte
	err      error
}

func (c *captureSender) SendDocument(_ context.Context, filename string, data io.Reader, caption string) error {
	if c.err != nil {
		return c.err
	}
	c.filename = filename
	c.caption = caption
	b, err := io.ReadAll(data)
	c.data = b
	return err
}

func TestSendMonth(t *testing.T) {
	logger := zerolog.New(io.Discard)
	lister := new(mockLister)
	lister.On("List", mock.Anything).Return([]models.Booking{
		{ID: 3, CustomerName: "Carol", ServiceDate: "2024-07-02", ServiceTime: "08:00", ServiceType: "full"},
		{ID: 2, CustomerName: "Bob", ServiceDate: "2024-06-30", ServiceTime: "11:00", ServiceType: "detail"},
		{ID: 1, CustomerName: "Alice", ServiceDate: "2024-06-01", ServiceTime: "09:30", ServiceType: "full"},
	}, nil)
	sender := &captureSender{}

	s := NewService(lister, sender, models.DefaultCatalog, time.UTC, &logger)
	require.NoError(t, s.SendMonth(context.Background(), time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)))

	assert.Equal(t, "bookings_2024_06.xlsx", sender.filename)
	assert.Equal(t, "Bookings for June 2024: 2", sender.caption)

	f, err := excelize.OpenReader(bytes.NewReader(sender.data))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows(f.GetSheetName(0))
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Contains(t, rows[1], "Bob")
	assert.Contains(t, rows[2], "Alice")
}

func TestSendMonth_Errors(t *testing.T) {
	logger := zerolog.New(io.Discard)
	month := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)

	lister := new(mockLister)
	lister.On("List", mock.Anything).Return(nil, errors.New("db closed")).Once()
	s := NewService(lister, &captureSender{}, models.DefaultCatalog, time.UTC, &logger)
	assert.ErrorContains(t, s.SendMonth(context.Background(), month), "list bookings")

	lister.On("List", mock.Anything).Return([]models.Booking{}, nil).Once()
	s = NewService(lister, &captureSender{err: errors.New("chat not found")}, models.DefaultCatalog, time.UTC, &logger)
	assert.ErrorContains(t, s.SendMonth(context.Background(), month), "send report")
}

func TestNextRun(t *testing.T) {
	logger := zerolog.New(io.Discard)
	s := NewService(nil, nil, models.DefaultCatalog, time.UTC, &logger)

	s.now = func() time.Time { return time.Date(2024, 12, 15, 10, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2025, 1, 1, 0, 1, 0, 0, time.UTC), s.nextRun())

	s.now = func() time.Time { return time.Date(2024, 6, 20, 8, 0, 0, 0, time.UTC) }
	assert.Equal(t, time.Date(2024, 7, 1, 0, 1, 0, 0, time.UTC), s.nextRun())
}
