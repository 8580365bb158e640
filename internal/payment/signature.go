package payment

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
)

func hmacSHA256(secret string, message []byte) []byte {
	mac := hmac.New(sha256.New, []byte(secret))
	mac.Write(message)
	return mac.Sum(nil)
}

// RazorpaySignature is hex(HMAC-SHA256(secret, orderID|paymentID))
func RazorpaySignature(secret, orderID, paymentID string) string {
	return hex.EncodeToString(hmacSHA256(secret, []byte(orderID+"|"+paymentID)))
}

// VerifyRazorpaySignature is true only for a byte-exact match
func VerifyRazorpaySignature(secret, orderID, paymentID, signature string) bool {
	expected := RazorpaySignature(secret, orderID, paymentID)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// WebhookSignature is base64(HMAC-SHA256(secret, timestamp+rawBody))
func WebhookSignature(secret string, rawBody []byte, timestamp string) string {
	msg := make([]byte, 0, len(timestamp)+len(rawBody))
	msg = append(msg, timestamp...)
	msg = append(msg, rawBody...)
	return base64.StdEncoding.EncodeToString(hmacSHA256(secret, msg))
}

// VerifyWebhookSignature compares against the exact wire bytes, never a re-serialized body
func VerifyWebhookSignature(secret string, rawBody []byte, signature, timestamp string) bool {
	if secret == "" || signature == "" || timestamp == "" {
		return false
	}
	expected := WebhookSignature(secret, rawBody, timestamp)
	return hmac.Equal([]byte(expected), []byte(signature))
}

// requestSignature is base64(HMAC-SHA256(secret, body+timestamp)) for outbound Cashfree calls
func requestSignature(secret string, body []byte, timestamp string) string {
	msg := make([]byte, 0, len(body)+len(timestamp))
	msg = append(msg, body...)
	msg = append(msg, timestamp...)
	return base64.StdEncoding.EncodeToString(hmacSHA256(secret, msg))
}
