package utils

import (
	"crypto/hmac"
	"crypto/sha512"
	"encoding/hex"
	"net/url"
	"strconv"
	"strings"
	"time"

	"cinema_booking/config"
	"cinema_booking/constants"
	"cinema_booking/model"
)

const vnpDateLayout = "20060102150405"

// VNPay yêu cầu thời gian theo giờ Việt Nam (GMT+7)
var vnpLocation = time.FixedZone("ICT", 7*60*60)

// VNPay Service
type VNPay struct {
	Config config.VNPayConfig
}

func NewVNPay(cfg config.VNPayConfig) *VNPay {
	return &VNPay{Config: cfg}
}

// Tạo Payment URL
func (v *VNPay) BuildPaymentUrl(req model.PaymentRequest) string {
	params := url.Values{}
	params.Add("vnp_Version", "2.1.0")
	params.Add("vnp_Command", "pay")
	params.Add("vnp_TmnCode", v.Config.TmnCode)
	params.Add("vnp_Amount", strconv.FormatInt(req.Amount*100, 10)) // VND * 100
	params.Add("vnp_CreateDate", req.CreatedAt.In(vnpLocation).Format(vnpDateLayout))
	params.Add("vnp_CurrCode", "VND")
	params.Add("vnp_IpAddr", req.IPAddr)
	params.Add("vnp_Locale", "vn")
	params.Add("vnp_OrderInfo", req.OrderInfo)
	params.Add("vnp_OrderType", "other")
	params.Add("vnp_ReturnUrl", v.Config.ReturnURL)
	params.Add("vnp_TxnRef", req.TxnRef)
	params.Add("vnp_ExpireDate", req.ExpiresAt.In(vnpLocation).Format(vnpDateLayout))

	// Encode() sắp xếp theo key, đúng thứ tự VNPay dùng để ký
	query := params.Encode()
	return v.Config.BaseURL + "?" + query + "&vnp_SecureHash=" + v.generateHash(query)
}

// Sign trả về chữ ký của tập tham số (không gồm vnp_SecureHash).
func (v *VNPay) Sign(values url.Values) string {
	return v.generateHash(stripHash(values).Encode())
}

// ParseCallback kiểm tra chữ ký và dựng GatewayCallback từ query của return URL hoặc IPN.
func (v *VNPay) ParseCallback(query url.Values) model.GatewayCallback {
	secureHash := strings.ToLower(query.Get("vnp_SecureHash"))
	expected := v.Sign(query)
	if secureHash == "" || !hmac.Equal([]byte(secureHash), []byte(expected)) {
		return model.GatewayCallback{Outcome: model.OutcomeChecksumFailed}
	}

	rawAmount, err := strconv.ParseInt(query.Get("vnp_Amount"), 10, 64)
	if err != nil || rawAmount < 0 {
		return model.GatewayCallback{Outcome: model.OutcomeChecksumFailed}
	}

	cb := model.GatewayCallback{
		Outcome:       model.OutcomeVerifiedFailure,
		TxnRef:        query.Get("vnp_TxnRef"),
		Amount:        rawAmount,
		ResponseCode:  query.Get("vnp_ResponseCode"),
		TransactionNo: query.Get("vnp_TransactionNo"),
		BankCode:      query.Get("vnp_BankCode"),
	}
	if payDate, err := time.ParseInLocation(vnpDateLayout, query.Get("vnp_PayDate"), vnpLocation); err == nil {
		cb.PayDate = &payDate
	}

	status := query.Get("vnp_TransactionStatus")
	if cb.ResponseCode == constants.VNPayResponseSuccess && (status == "" || status == constants.VNPayResponseSuccess) {
		cb.Outcome = model.OutcomeVerifiedSuccess
	}
	return cb
}

func stripHash(values url.Values) url.Values {
	cleaned := url.Values{}
	for k, vs := range values {
		if k == "vnp_SecureHash" || k == "vnp_SecureHashType" {
			continue
		}
		cleaned[k] = vs
	}
	return cleaned
}

// Helpers
func (v *VNPay) generateHash(data string) string {
	h := hmac.New(sha512.New, []byte(v.Config.HashSecret))
	h.Write([]byte(data))
	return hex.EncodeToString(h.Sum(nil))
}
