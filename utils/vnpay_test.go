package utils

import (
	"net/url"
	"strconv"
	"strings"
	"testing"
	"time"

	"cinema_booking/config"
	"cinema_booking/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testVNPay() *VNPay {
	return NewVNPay(config.VNPayConfig{
		TmnCode:    "DEMO0001",
		HashSecret: "SECRETKEY",
		BaseURL:    "https://sandbox.vnpayment.vn/paymentv2/vpcpay.html",
		ReturnURL:  "http://localhost:8002/vnpay/return",
	})
}

func signedCallback(v *VNPay, txnRef string, amount int64, code string) url.Values {
	q := url.Values{}
	q.Set("vnp_TmnCode", v.Config.TmnCode)
	q.Set("vnp_TxnRef", txnRef)
	q.Set("vnp_Amount", strconv.FormatInt(amount*100, 10))
	q.Set("vnp_ResponseCode", code)
	q.Set("vnp_TransactionStatus", code)
	q.Set("vnp_TransactionNo", "14001234")
	q.Set("vnp_BankCode", "NCB")
	q.Set("vnp_PayDate", "20250601103000")
	q.Set("vnp_SecureHash", v.Sign(q))
	return q
}

func TestBuildPaymentUrl(t *testing.T) {
	v := testVNPay()
	created := time.Date(2025, 6, 1, 3, 0, 0, 0, time.UTC)

	raw := v.BuildPaymentUrl(model.PaymentRequest{
		Amount:    150000,
		OrderInfo: "Thanh toan ve ORD-1",
		TxnRef:    "TXN123",
		IPAddr:    "127.0.0.1",
		CreatedAt: created,
		ExpiresAt: created.Add(15 * time.Minute),
	})

	u, err := url.Parse(raw)
	require.NoError(t, err)
	q := u.Query()
	assert.Equal(t, "15000000", q.Get("vnp_Amount"))
	assert.Equal(t, "TXN123", q.Get("vnp_TxnRef"))
	assert.Equal(t, "20250601100000", q.Get("vnp_CreateDate"))
	assert.Equal(t, "20250601101500", q.Get("vnp_ExpireDate"))
	assert.Equal(t, v.Config.ReturnURL, q.Get("vnp_ReturnUrl"))

	// chữ ký trong URL phải kiểm chứng lại được
	assert.Equal(t, v.Sign(q), q.Get("vnp_SecureHash"))
}

func TestParseCallback(t *testing.T) {
	v := testVNPay()

	t.Run("verified success", func(t *testing.T) {
		cb := v.ParseCallback(signedCallback(v, "TXN1", 150000, "00"))
		assert.Equal(t, model.OutcomeVerifiedSuccess, cb.Outcome)
		assert.Equal(t, int64(15000000), cb.Amount)
		assert.Equal(t, "TXN1", cb.TxnRef)
		assert.Equal(t, "14001234", cb.TransactionNo)
		require.NotNil(t, cb.PayDate)
		assert.Equal(t, time.Date(2025, 6, 1, 3, 30, 0, 0, time.UTC), cb.PayDate.UTC())
	})

	t.Run("verified failure", func(t *testing.T) {
		cb := v.ParseCallback(signedCallback(v, "TXN1", 150000, "24"))
		assert.Equal(t, model.OutcomeVerifiedFailure, cb.Outcome)
		assert.Equal(t, "24", cb.ResponseCode)
	})

	t.Run("tampered amount", func(t *testing.T) {
		q := signedCallback(v, "TXN1", 150000, "00")
		q.Set("vnp_Amount", "100")
		assert.Equal(t, model.OutcomeChecksumFailed, v.ParseCallback(q).Outcome)
	})

	t.Run("missing hash", func(t *testing.T) {
		q := signedCallback(v, "TXN1", 150000, "00")
		q.Del("vnp_SecureHash")
		assert.Equal(t, model.OutcomeChecksumFailed, v.ParseCallback(q).Outcome)
	})

	t.Run("uppercase hash accepted", func(t *testing.T) {
		q := signedCallback(v, "TXN1", 150000, "00")
		q.Set("vnp_SecureHash", strings.ToUpper(q.Get("vnp_SecureHash")))
		q.Set("vnp_SecureHashType", "HmacSHA512")
		assert.Equal(t, model.OutcomeVerifiedSuccess, v.ParseCallback(q).Outcome)
	})
}

func TestGenerateQRCodeDataURI(t *testing.T) {
	uri, err := GenerateQRCodeDataURI("ORD-12345678", 128)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(uri, "data:image/png;base64,"))
}

func TestGenerateQRCodeDataURI_EmptyContent(t *testing.T) {
	_, err := GenerateQRCodeDataURI("", 128)
	assert.Error(t, err)
}
