package notify

import (
	"bytes"
	"fmt"
	"mime"
	"mime/multipart"
	"net/textproto"
	"time"

	"jaytaylor.com/html2text"
)

// rawEmail builds a multipart/alternative message with a plain text part
// derived from the HTML body.
func rawEmail(msg Message) ([]byte, error) {
	text, err := html2text.FromString(msg.Body, html2text.Options{PrettyTables: false})
	if err != nil {
		text = msg.Body
	}

	b := &bytes.Buffer{}
	b.WriteString("From: " + addressWithName(mime.QEncoding.Encode("utf-8", msg.FromName), msg.FromEmail) + "\r\n")
	b.WriteString("To: " + addressWithName(mime.QEncoding.Encode("utf-8", msg.ToName), msg.ToEmail) + "\r\n")
	b.WriteString("Subject: " + mime.QEncoding.Encode("utf-8", msg.Subject) + "\r\n")
	b.WriteString("Date: " + time.Now().UTC().Format(time.RFC1123Z) + "\r\n")
	b.WriteString("MIME-Version: 1.0\r\n")

	w := multipart.NewWriter(b)
	b.WriteString(`Content-Type: multipart/alternative; boundary="` + w.Boundary() + `"` + "\r\n\r\n")

	for _, part := range []struct {
		contentType string
		body        string
	}{
		{"text/plain; charset=utf-8", text},
		{"text/html; charset=utf-8", msg.Body},
	} {
		pw, err := w.CreatePart(textproto.MIMEHeader{
			"Content-Type":        {part.contentType},
			"Content-Disposition": {"inline"},
		})
		if err != nil {
			return nil, fmt.Errorf("create MIME part: %w", err)
		}
		if _, err := pw.Write([]byte(part.body)); err != nil {
			return nil, fmt.Errorf("write MIME part: %w", err)
		}
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("close MIME writer: %w", err)
	}
	return b.Bytes(), nil
}
