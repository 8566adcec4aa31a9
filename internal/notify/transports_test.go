package notify

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"detailing/internal/events"
	"detailing/internal/models"

	"github.com/alicebob/miniredis/v2"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"
	"google.golang.org/api/sheets/v4"
)

type fakeBot struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
	docs []tgbotapi.DocumentConfig
	err  error
}

func (f *fakeBot) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return tgbotapi.Message{}, f.err
	}
	switch v := c.(type) {
	case tgbotapi.MessageConfig:
		f.sent = append(f.sent, v)
	case tgbotapi.DocumentConfig:
		f.docs = append(f.docs, v)
	}
	return tgbotapi.Message{}, nil
}

func TestTelegram_SendsToEveryChat(t *testing.T) {
	logger := zerolog.New(io.Discard)
	bot := &fakeBot{}
	tg := NewTelegram(bot, []int64{10, 20}, models.DefaultCatalog, &logger)

	require.NoError(t, tg.Notify(context.Background(), events.NewBookingCreated(sampleBooking())))
	require.Len(t, bot.sent, 2)
	assert.Equal(t, int64(10), bot.sent[0].ChatID)
	assert.Contains(t, bot.sent[0].Text, "New booking #42")
	assert.Contains(t, bot.sent[0].Text, "Saturday, 1 June 2024 at 09:30")
	assert.Contains(t, bot.sent[0].Text, "1 Main St, Unit 4, Perth, WA 6000")

	msg := &models.ContactMessage{Name: "Bob", Email: "bob@example.com", Phone: "0400", Message: "Hi"}
	require.NoError(t, tg.Notify(context.Background(), events.NewContactSubmitted(msg)))
	assert.Contains(t, bot.sent[2].Text, "New message from Bob <bob@example.com>\nPhone: 0400\nHi")
}

func TestTelegram_SendDocument(t *testing.T) {
	logger := zerolog.New(io.Discard)
	bot := &fakeBot{}
	tg := NewTelegram(bot, []int64{10, 20}, models.DefaultCatalog, &logger)

	err := tg.SendDocument(context.Background(), "bookings_2024_06.xlsx", strings.NewReader("xlsx"), "Bookings for June 2024: 2")
	require.NoError(t, err)
	require.Len(t, bot.docs, 2)
	assert.Equal(t, int64(20), bot.docs[1].ChatID)
	assert.Equal(t, "Bookings for June 2024: 2", bot.docs[0].Caption)

	file, ok := bot.docs[0].File.(tgbotapi.FileBytes)
	require.True(t, ok)
	assert.Equal(t, "bookings_2024_06.xlsx", file.Name)
	assert.Equal(t, []byte("xlsx"), file.Bytes)
}

func TestTelegram_ClassifiesErrors(t *testing.T) {
	logger := zerolog.New(io.Discard)

	tg := NewTelegram(&fakeBot{err: &tgbotapi.Error{
		Code:               429,
		Message:            "Too Many Requests",
		ResponseParameters: tgbotapi.ResponseParameters{RetryAfter: 3},
	}}, []int64{1}, models.DefaultCatalog, &logger)
	err := tg.Notify(context.Background(), events.NewBookingCreated(sampleBooking()))
	var ra *RetryAfterError
	require.ErrorAs(t, err, &ra)
	assert.Equal(t, "3s", ra.Wait.String())

	tg = NewTelegram(&fakeBot{err: &tgbotapi.Error{Code: 403, Message: "Forbidden"}}, []int64{1}, models.DefaultCatalog, &logger)
	err = tg.Notify(context.Background(), events.NewBookingCreated(sampleBooking()))
	assert.ErrorIs(t, err, ErrPermanent)

	tg = NewTelegram(&fakeBot{err: errors.New("timeout")}, []int64{1}, models.DefaultCatalog, &logger)
	err = tg.Notify(context.Background(), events.NewBookingCreated(sampleBooking()))
	assert.Error(t, err)
	assert.NotErrorIs(t, err, ErrPermanent)
}

func TestSheets_AppendsBookingRow(t *testing.T) {
	logger := zerolog.New(io.Discard)
	var (
		gotPath string
		gotBody sheets.ValueRange
	)

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotPath = r.URL.Path
		_ = json.NewDecoder(r.Body).Decode(&gotBody)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{}`))
	}))
	defer server.Close()

	ctx := context.Background()
	srv, err := sheets.NewService(ctx, option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)

	s := NewSheets(srv, "sheet-123", "Bookings!A1", models.DefaultCatalog, &logger)
	require.NoError(t, s.Notify(ctx, events.NewBookingCreated(sampleBooking())))

	assert.True(t, strings.Contains(gotPath, "sheet-123"), gotPath)
	require.Len(t, gotBody.Values, 1)
	assert.Equal(t, float64(42), gotBody.Values[0][0])
	assert.Equal(t, "Alice Smith", gotBody.Values[0][5])

	// contact messages are not written to the bookings sheet
	gotPath = ""
	require.NoError(t, s.Notify(ctx, events.NewContactSubmitted(&models.ContactMessage{Name: "Bob"})))
	assert.Empty(t, gotPath)
}

func TestSheets_ClientErrorIsPermanent(t *testing.T) {
	logger := zerolog.New(io.Discard)
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, _ *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":{"code":404,"message":"Requested entity was not found."}}`))
	}))
	defer server.Close()

	srv, err := sheets.NewService(context.Background(), option.WithEndpoint(server.URL), option.WithoutAuthentication())
	require.NoError(t, err)

	s := NewSheets(srv, "missing", "Bookings!A1", models.DefaultCatalog, &logger)
	err = s.Notify(context.Background(), events.NewBookingCreated(sampleBooking()))
	assert.ErrorIs(t, err, ErrPermanent)
}

type fakeKafkaWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (f *fakeKafkaWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if f.err != nil {
		return f.err
	}
	f.msgs = append(f.msgs, msgs...)
	return nil
}

func (f *fakeKafkaWriter) Close() error {
	f.closed = true
	return nil
}

func TestKafka_WritesKeyedMessage(t *testing.T) {
	logger := zerolog.New(io.Discard)
	w := &fakeKafkaWriter{}
	k := NewKafka(w, &logger)

	event := events.NewBookingCreated(sampleBooking())
	require.NoError(t, k.Notify(context.Background(), event))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, "booking-42", string(w.msgs[0].Key))
	assert.Equal(t, "event_type", w.msgs[0].Headers[0].Key)
	assert.Equal(t, "booking.created", string(w.msgs[0].Headers[0].Value))

	var decoded events.Event
	require.NoError(t, json.Unmarshal(w.msgs[0].Value, &decoded))
	assert.Equal(t, event.ID, decoded.ID)

	require.NoError(t, k.Close())
	assert.True(t, w.closed)
	assert.ErrorIs(t, k.Notify(context.Background(), event), ErrProducerClosed)
}

func TestNewKafkaWriter_Validates(t *testing.T) {
	_, err := NewKafkaWriter(nil, "bookings")
	assert.Error(t, err)
	_, err = NewKafkaWriter([]string{"localhost:9092"}, "")
	assert.Error(t, err)

	w, err := NewKafkaWriter([]string{"localhost:9092"}, "bookings")
	require.NoError(t, err)
	assert.Equal(t, "bookings", w.Topic)
}

func TestRedisPublisher(t *testing.T) {
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer client.Close()

	ctx := context.Background()
	sub := client.Subscribe(ctx, "detailing:events")
	defer sub.Close()
	_, err := sub.Receive(ctx)
	require.NoError(t, err)

	p := NewRedisPublisher(client, "detailing:events")
	require.NoError(t, p.Notify(ctx, events.NewBookingCreated(sampleBooking())))

	msg, err := sub.ReceiveMessage(ctx)
	require.NoError(t, err)
	assert.Contains(t, msg.Payload, `"type":"booking.created"`)
}

func TestLog_NeverFails(t *testing.T) {
	var sb strings.Builder
	logger := zerolog.New(&sb)
	l := NewLog(&logger)

	require.NoError(t, l.Notify(context.Background(), events.NewBookingCreated(sampleBooking())))
	assert.Contains(t, sb.String(), `"booking_id":42`)
}
