package utils

import (
	"context"
	"encoding/base64"
	"fmt"
	"net/url"
	"os"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"
	"github.com/skip2/go-qrcode"
)

// GenerateVerificationQR génère le QR de vérification d'un certificat en base64
// prêt à mettre dans <img src="...">. Le QR pointe vers l'endpoint public de
// vérification, c'est lui qui fait foi.
func GenerateVerificationQR(certificateID string) (string, error) {
	baseURL := os.Getenv("BASE_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	verifyURL := fmt.Sprintf("%s/api/certificates/%s/verify", baseURL, certificateID)

	png, err := qrcode.Encode(verifyURL, qrcode.Medium, 256)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}

// RenderCertificatePDF charge la page certificat React côté serveur et l'imprime en PDF.
// frontendURL doit ressembler à: http://localhost:3000/certificate
func RenderCertificatePDF(frontendURL, certificateID, studentName, courseTitle, qrBase64 string) ([]byte, error) {
	// on passe les params en query
	q := url.Values{}
	q.Set("id", certificateID)
	q.Set("student", studentName)
	q.Set("course", courseTitle)
	q.Set("qr", qrBase64)

	fullURL := fmt.Sprintf("%s?%s", frontendURL, q.Encode())

	ctx, cancel := chromedp.NewContext(context.Background())
	defer cancel()

	// timeout pour éviter de bloquer
	ctx, cancel = context.WithTimeout(ctx, 30*time.Second)
	defer cancel()

	var pdfBuf []byte

	err := chromedp.Run(ctx,
		chromedp.Navigate(fullURL),
		chromedp.WaitVisible("body", chromedp.ByQuery),
		chromedp.ActionFunc(func(ctx context.Context) error {
			buf, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithLandscape(true).
				WithPaperWidth(11.69). // A4 paysage, en pouces
				WithPaperHeight(8.27).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfBuf = buf
			return nil
		}),
	)
	if err != nil {
		return nil, err
	}

	return pdfBuf, nil
}

// GetFrontendCertificateBaseURL récupère l'URL de la page certificat du front
func GetFrontendCertificateBaseURL() string {
	u := os.Getenv("FRONTEND_CERTIFICATE_URL")
	if u == "" {
		// fallback local dev
		return "http://localhost:3000/certificate"
	}
	return u
}
