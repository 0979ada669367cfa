package services

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"mime/multipart"
	"os"
	"time"

	"bioharvest_back_end/internal/database"

	"github.com/minio/minio-go/v7"
)

// UploadProductImage stocke une image produit et retourne son URL publique
func UploadProductImage(ctx context.Context, file *multipart.FileHeader) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	f, err := file.Open()
	if err != nil {
		return "", err
	}
	defer f.Close()

	bucket := os.Getenv("MINIO_BUCKET")
	objectName := "products/" + file.Filename

	_, err = database.MinIO.PutObject(ctx, bucket, objectName, f, file.Size,
		minio.PutObjectOptions{ContentType: file.Header.Get("Content-Type")})
	if err != nil {
		return "", err
	}

	url := fmt.Sprintf("http://%s/%s/%s", os.Getenv("MINIO_ENDPOINT"), bucket, objectName)
	return url, nil
}

// UploadCertificatePDF stocke le PDF d'un certificat, clé = certificate_id
func UploadCertificatePDF(ctx context.Context, certificateID string, pdf []byte) error {
	if database.MinIO == nil {
		return fmt.Errorf("MinIO non initialisé")
	}

	bucket := certificatesBucket()
	objectName := certificateObjectName(certificateID)

	_, err := database.MinIO.PutObject(ctx, bucket, objectName,
		bytes.NewReader(pdf), int64(len(pdf)),
		minio.PutObjectOptions{ContentType: "application/pdf"})
	return err
}

// GetCertificatePDF récupère le PDF d'un certificat déjà émis
func GetCertificatePDF(ctx context.Context, certificateID string) ([]byte, error) {
	if database.MinIO == nil {
		return nil, fmt.Errorf("MinIO non initialisé")
	}

	obj, err := database.MinIO.GetObject(ctx, certificatesBucket(),
		certificateObjectName(certificateID), minio.GetObjectOptions{})
	if err != nil {
		return nil, err
	}
	defer obj.Close()

	return io.ReadAll(obj)
}

// GenerateSignedCertificateURL génère une URL signée temporaire vers le PDF
func GenerateSignedCertificateURL(ctx context.Context, certificateID string, duration time.Duration) (string, error) {
	if database.MinIO == nil {
		return "", fmt.Errorf("MinIO non initialisé")
	}

	presignedURL, err := database.MinIO.PresignedGetObject(
		ctx,
		certificatesBucket(),
		certificateObjectName(certificateID),
		duration,
		nil,
	)
	if err != nil {
		return "", err
	}
	return presignedURL.String(), nil
}

func certificatesBucket() string {
	bucket := os.Getenv("MINIO_CERTIFICATES_BUCKET")
	if bucket == "" {
		bucket = "bioharvest-certificates"
	}
	return bucket
}

func certificateObjectName(certificateID string) string {
	return "certificates/" + certificateID + ".pdf"
}
