package utils

import (
	"encoding/base64"

	"github.com/skip2/go-qrcode"
)

const qrDataURIPrefix = "data:image/png;base64,"

// GenerateQRCodeDataURI mã hoá content thành PNG và trả về data URI để nhúng vào <img>.
func GenerateQRCodeDataURI(content string, size int) (string, error) {
	data, err := qrcode.Encode(content, qrcode.Medium, size)
	if err != nil {
		return "", err
	}
	return qrDataURIPrefix + base64.StdEncoding.EncodeToString(data), nil
}
