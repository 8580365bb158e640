package webhook

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/ashendes/commerce-api/internal/apperr"
	"github.com/ashendes/commerce-api/internal/models"
	"github.com/ashendes/commerce-api/internal/payment"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testSecret = "whsec_test"

type secretVerifier string

func (s secretVerifier) WebhookConfigured() bool { return s != "" }

func (s secretVerifier) VerifyWebhookSignature(raw []byte, sig, ts string) bool {
	return payment.VerifyWebhookSignature(string(s), raw, sig, ts)
}

type recordingPublisher struct {
	events []models.StatusEvent
	err    error
}

func (p *recordingPublisher) Publish(_ context.Context, e models.StatusEvent) error {
	p.events = append(p.events, e)
	return p.err
}

func (p *recordingPublisher) Close() error { return nil }

type brokenLedger struct{}

func (brokenLedger) Seen(string) (time.Time, bool, error) { return time.Time{}, false, errors.New("disk full") }
func (brokenLedger) MarkProcessed(string) error            { return errors.New("disk full") }
func (brokenLedger) Close() error                          { return nil }

const successBody = `{"type":"PAYMENT_SUCCESS_WEBHOOK","event_time":"2026-10-14T10:00:00+05:30","data":{"order":{"order_id":"ORD_1","order_amount":1497,"order_currency":"INR"},"payment":{"cf_payment_id":5114910,"payment_status":"SUCCESS","payment_amount":1497,"payment_message":"ok"}}}`

func sign(body, ts string) string {
	return payment.WebhookSignature(testSecret, []byte(body), ts)
}

func TestHandleRejectsMissingHeaders(t *testing.T) {
	in := NewIngestor(secretVerifier(testSecret), nil, nil)

	_, err := in.Handle(context.Background(), []byte(successBody), "", "1700000000")
	assert.True(t, apperr.Is(err, apperr.KindInvalidSignature))

	_, err = in.Handle(context.Background(), []byte(successBody), sign(successBody, "1700000000"), "")
	assert.True(t, apperr.Is(err, apperr.KindInvalidSignature))
}

func TestHandleReportsMissingSecret(t *testing.T) {
	pub := &recordingPublisher{}
	in := NewIngestor(secretVerifier(""), nil, pub)

	_, err := in.Handle(context.Background(), []byte(successBody), "anything", "1700000000")
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindNotConfigured))
	assert.Equal(t, 503, apperr.As(err).HTTPStatus())
	assert.Empty(t, pub.events)
}

func TestHandleRejectsTamperedBody(t *testing.T) {
	pub := &recordingPublisher{}
	in := NewIngestor(secretVerifier(testSecret), nil, pub)

	sig := sign(successBody, "1700000000")
	tampered := `{"type":"PAYMENT_SUCCESS_WEBHOOK","event_time":"2026-10-14T10:00:00+05:30","data":{"order":{"order_id":"ORD_1","order_amount":1,"order_currency":"INR"},"payment":{"cf_payment_id":5114910,"payment_status":"SUCCESS","payment_amount":1,"payment_message":"ok"}}}`

	_, err := in.Handle(context.Background(), []byte(tampered), sig, "1700000000")
	require.Error(t, err)
	assert.Equal(t, 400, apperr.As(err).HTTPStatus())
	assert.Empty(t, pub.events)
}

func TestHandleVerifiesBeforeParsing(t *testing.T) {
	in := NewIngestor(secretVerifier(testSecret), nil, nil)

	_, err := in.Handle(context.Background(), []byte("not json"), "bogus", "1700000000")
	assert.True(t, apperr.Is(err, apperr.KindInvalidSignature))

	_, err = in.Handle(context.Background(), []byte("not json"), sign("not json", "1700000000"), "1700000000")
	assert.True(t, apperr.Is(err, apperr.KindValidation))
}

func TestHandleDispatchesSuccess(t *testing.T) {
	pub := &recordingPublisher{}
	in := NewIngestor(secretVerifier(testSecret), nil, pub)

	ack, err := in.Handle(context.Background(), []byte(successBody), sign(successBody, "1700000000"), "1700000000")
	require.NoError(t, err)
	assert.Equal(t, AckProcessed, ack.Status)
	assert.Equal(t, "PAYMENT_SUCCESS:ORD_1:5114910", ack.EventID)

	require.Len(t, pub.events, 1)
	assert.Equal(t, models.OrderStatusPaid, pub.events[0].Status)
	assert.Equal(t, "5114910", pub.events[0].PaymentID)
	assert.Equal(t, 1497.0, pub.events[0].Amount)
}

func TestHandleAcknowledgesUnknownTypes(t *testing.T) {
	body := `{"type":"REFUND_STATUS_WEBHOOK","data":{"order":{"order_id":"ORD_1"}}}`
	pub := &recordingPublisher{}
	in := NewIngestor(secretVerifier(testSecret), nil, pub)

	ack, err := in.Handle(context.Background(), []byte(body), sign(body, "1"), "1")
	require.NoError(t, err)
	assert.Equal(t, AckIgnored, ack.Status)
	assert.Empty(t, pub.events)
}

func TestHandleReplayWithoutLedgerDispatchesAgain(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	in := NewIngestor(secretVerifier(testSecret), NopLedger{}, pub)
	sig := sign(successBody, "1700000000")

	for i := 0; i < 2; i++ {
		ack, err := in.Handle(context.Background(), []byte(successBody), sig, "1700000000")
		require.NoError(t, err)
		assert.Equal(t, AckProcessed, ack.Status)
	}
	assert.Len(t, pub.events, 2)
}

func TestHandleReplayWithLedgerIsDuplicate(t *testing.T) {
	ledger, err := OpenBoltLedger(filepath.Join(t.TempDir(), "webhooks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	pub := &recordingPublisher{}
	in := NewIngestor(secretVerifier(testSecret), ledger, pub)
	sig := sign(successBody, "1700000000")

	first, err := in.Handle(context.Background(), []byte(successBody), sig, "1700000000")
	require.NoError(t, err)
	second, err := in.Handle(context.Background(), []byte(successBody), sig, "1700000000")
	require.NoError(t, err)

	assert.Equal(t, AckProcessed, first.Status)
	assert.Equal(t, AckDuplicate, second.Status)
	assert.Len(t, pub.events, 1)

	_, found, err := ledger.Seen(first.EventID)
	require.NoError(t, err)
	assert.True(t, found)
}

func TestHandleRetriesAfterPublishFailure(t *testing.T) {
	ledger, err := OpenBoltLedger(filepath.Join(t.TempDir(), "webhooks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	pub := &recordingPublisher{err: errors.New("broker down")}
	in := NewIngestor(secretVerifier(testSecret), ledger, pub)
	sig := sign(successBody, "1700000000")

	first, err := in.Handle(context.Background(), []byte(successBody), sig, "1700000000")
	require.NoError(t, err)
	assert.Equal(t, AckProcessed, first.Status)
	_, found, err := ledger.Seen(first.EventID)
	require.NoError(t, err)
	assert.False(t, found)

	pub.err = nil
	retry, err := in.Handle(context.Background(), []byte(successBody), sig, "1700000000")
	require.NoError(t, err)
	assert.Equal(t, AckProcessed, retry.Status)
	assert.Len(t, pub.events, 2)

	again, err := in.Handle(context.Background(), []byte(successBody), sig, "1700000000")
	require.NoError(t, err)
	assert.Equal(t, AckDuplicate, again.Status)
	assert.Len(t, pub.events, 2)
}

func TestHandleRecordsIgnoredTypes(t *testing.T) {
	ledger, err := OpenBoltLedger(filepath.Join(t.TempDir(), "webhooks.db"))
	require.NoError(t, err)
	t.Cleanup(func() { ledger.Close() })

	body := `{"type":"REFUND_STATUS_WEBHOOK","data":{"order":{"order_id":"ORD_1"}}}`
	in := NewIngestor(secretVerifier(testSecret), ledger, &recordingPublisher{})

	ack, err := in.Handle(context.Background(), []byte(body), sign(body, "1"), "1")
	require.NoError(t, err)
	assert.Equal(t, AckIgnored, ack.Status)

	ack, err = in.Handle(context.Background(), []byte(body), sign(body, "1"), "1")
	require.NoError(t, err)
	assert.Equal(t, AckDuplicate, ack.Status)
}

func TestHandleLedgerFailureStillDispatches(t *testing.T) {
	pub := &recordingPublisher{}
	in := NewIngestor(secretVerifier(testSecret), brokenLedger{}, pub)

	ack, err := in.Handle(context.Background(), []byte(successBody), sign(successBody, "9"), "9")
	require.NoError(t, err)
	assert.Equal(t, AckProcessed, ack.Status)
	assert.Len(t, pub.events, 1)
}

func TestBoltLedgerSurvivesReopen(t *testing.T) {
	path := filepath.Join(t.TempDir(), "ledger.db")
	ledger, err := OpenBoltLedger(path)
	require.NoError(t, err)

	require.NoError(t, ledger.MarkProcessed("PAYMENT_FAILED:ORD_2:1"))
	at, found, err := ledger.Seen("PAYMENT_FAILED:ORD_2:1")
	require.NoError(t, err)
	require.True(t, found)
	require.NoError(t, ledger.Close())

	ledger, err = OpenBoltLedger(path)
	require.NoError(t, err)
	defer ledger.Close()
	require.NoError(t, ledger.MarkProcessed("PAYMENT_FAILED:ORD_2:1"))
	reopenedAt, found, err := ledger.Seen("PAYMENT_FAILED:ORD_2:1")
	require.NoError(t, err)
	assert.True(t, found)
	assert.True(t, at.Equal(reopenedAt))
}

func TestNormalizeType(t *testing.T) {
	assert.Equal(t, EventPaymentSuccess, NormalizeType("payment_success_webhook"))
	assert.Equal(t, EventPaymentUserDropped, NormalizeType("PAYMENT_USER_DROPPED"))
}

func TestUserDroppedMapsToCancelled(t *testing.T) {
	body := `{"type":"PAYMENT_USER_DROPPED","data":{"order":{"order_id":"ORD_3","order_amount":50},"payment":{"cf_payment_id":"77"}}}`
	pub := &recordingPublisher{}
	in := NewIngestor(secretVerifier(testSecret), nil, pub)

	_, err := in.Handle(context.Background(), []byte(body), sign(body, "5"), "5")
	require.NoError(t, err)
	require.Len(t, pub.events, 1)
	assert.Equal(t, models.OrderStatusCancelled, pub.events[0].Status)
	assert.Equal(t, 50.0, pub.events[0].Amount)
}
