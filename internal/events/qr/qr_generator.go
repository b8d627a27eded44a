package qr

import (
	"fmt"
	"net/url"
	"strings"

	"github.com/skip2/go-qrcode"
)

// QRGenerator renders share codes pointing at an event in the calendar.
type QRGenerator struct {
	baseURL string
	size    int
}

func NewQRGenerator(baseURL string) *QRGenerator {
	return &QRGenerator{baseURL: strings.TrimRight(baseURL, "/"), size: 256}
}

// EventLink is the calendar URL that opens the event's details.
func (q *QRGenerator) EventLink(eventID string) string {
	return fmt.Sprintf("%s/admin/cal?event=%s", q.baseURL, url.QueryEscape(eventID))
}

// GenerateEventQR returns a PNG encoding EventLink(eventID).
func (q *QRGenerator) GenerateEventQR(eventID string) ([]byte, error) {
	png, err := qrcode.Encode(q.EventLink(eventID), qrcode.Medium, q.size)
	if err != nil {
		return nil, fmt.Errorf("encode qr for event %s: %w", eventID, err)
	}
	return png, nil
}
