package utils

import (
	"bytes"
	"fmt"
	"log"
	"os"

	"bioharvest_back_end/internal/models"

	"github.com/wneessen/go-mail"
)

// SendEmail envoie un e-mail HTML avec pièce jointe PDF optionnelle
func SendEmail(to, subject, htmlBody string, pdfAttachment []byte, attachmentName string) error {
	msg := mail.NewMsg()

	if err := msg.From("noreply@bioharvest.fr"); err != nil {
		return err
	}
	if err := msg.To(to); err != nil {
		return err
	}
	msg.Subject(subject)
	msg.SetBodyString(mail.TypeTextHTML, htmlBody)

	if pdfAttachment != nil {
		if attachmentName == "" {
			attachmentName = "document.pdf"
		}
		msg.AttachReader(attachmentName, bytes.NewReader(pdfAttachment))
	}

	client, err := mail.NewClient(os.Getenv("SMTP_HOST"),
		mail.WithPort(587),
		mail.WithSMTPAuth(mail.SMTPAuthLogin),
		mail.WithUsername(os.Getenv("SMTP_USERNAME")),
		mail.WithPassword(os.Getenv("SMTP_PASSWORD")),
		mail.WithTLSPolicy(mail.TLSMandatory),
	)
	if err != nil {
		return err
	}

	log.Println("📤 Envoi de l'e-mail à", to)
	return client.DialAndSend(msg)
}

// GenerateOrderConfirmationHTML génère le HTML de confirmation de commande
func GenerateOrderConfirmationHTML(order models.Order) string {
	itemsHTML := ""
	for _, item := range order.Items {
		itemsHTML += fmt.Sprintf(`
			<tr>
				<td>%s</td>
				<td>%d</td>
				<td>%.2f€</td>
				<td>%.2f€</td>
			</tr>`, item.Name, item.Quantity, item.Price, item.Price*float64(item.Quantity))
	}

	discountHTML := ""
	if order.Discount > 0 {
		discountHTML = fmt.Sprintf(`
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right;">Réduction (%s):</td>
					<td style="padding: 10px; color: #2e7d32;">-%.2f€</td>
				</tr>`, order.PromoCode, order.Discount)
	}

	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<meta name="viewport" content="width=device-width, initial-scale=1.0">
	<title>Confirmation de commande</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f4f9f4; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #2e7d32;">Confirmation de votre commande</h2>
		<p>Bonjour,</p>
		<p>Votre commande BioHarvest a été confirmée avec succès.</p>

		<h3>Détails de la commande</h3>
		<table style="width: 100%%; border-collapse: collapse; margin: 20px 0;">
			<thead>
				<tr style="background-color: #e8f5e9;">
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Produit</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Quantité</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Prix unitaire</th>
					<th style="padding: 10px; text-align: left; border: 1px solid #ddd;">Total</th>
				</tr>
			</thead>
			<tbody>
				%s
			</tbody>
			<tfoot>
				%s
				<tr>
					<td colspan="3" style="padding: 10px; text-align: right; font-weight: bold;">Total:</td>
					<td style="padding: 10px; font-weight: bold;">%.2f€</td>
				</tr>
			</tfoot>
		</table>

		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe BioHarvest</strong>
		</p>
	</div>
</body>
</html>`, itemsHTML, discountHTML, order.FinalPrice)
}

// GenerateCertificateEmailHTML génère le HTML d'annonce de certificat
func GenerateCertificateEmailHTML(studentName, courseTitle string, cert models.Certificate) string {
	return fmt.Sprintf(`
<!DOCTYPE html>
<html lang="fr">
<head>
	<meta charset="UTF-8">
	<title>Votre certificat</title>
</head>
<body style="font-family: Arial, sans-serif; background-color: #f4f9f4; padding: 20px;">
	<div style="max-width: 600px; margin: auto; background-color: white; padding: 20px; border-radius: 10px;">
		<h2 style="color: #2e7d32;">🎓 Félicitations %s !</h2>
		<p>Vous avez terminé le cours <strong>%s</strong>.</p>
		<p>Votre certificat est joint à cet e-mail. Il peut être vérifié à tout moment
		avec son identifiant :</p>
		<p style="font-family: monospace; background: #e8f5e9; padding: 10px; border-radius: 5px;">%s</p>
		<p style="margin-top: 30px; color: #555;">
			Cordialement,<br>
			<strong>L'équipe BioHarvest Academy</strong>
		</p>
	</div>
</body>
</html>`, studentName, courseTitle, cert.CertificateID.String())
}

// SendOrderStatusEmail envoie un email de notification de changement de statut
func SendOrderStatusEmail(order models.Order, userEmail string, newStatus string) error {
	subject := getStatusEmailSubject(newStatus)
	html := GenerateOrderConfirmationHTML(order)

	if err := SendEmail(userEmail, subject, html, nil, ""); err != nil {
		log.Printf("❌ Erreur envoi email statut: %v", err)
		return err
	}

	log.Printf("📧 Email de statut envoyé: %s → %s", newStatus, userEmail)
	return nil
}

func getStatusEmailSubject(status string) string {
	switch status {
	case "paid":
		return "✅ Paiement confirmé - BioHarvest"
	case "preparing":
		return "🧺 Votre panier est en préparation - BioHarvest"
	case "delivered":
		return "🎉 Votre commande a été livrée - BioHarvest"
	case "cancelled":
		return "❌ Commande annulée - BioHarvest"
	default:
		return "📋 Mise à jour de votre commande - BioHarvest"
	}
}
