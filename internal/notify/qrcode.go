package notify

import (
	"encoding/base64"
	"fmt"

	"github.com/skip2/go-qrcode"

	"tutora_back_end/internal/apperr"
	"tutora_back_end/internal/models"
)

const PassSize = 256

// PassPayload est le contenu lu par le scanner à l'entrée du cours
func PassPayload(e models.Enrollment) string {
	return fmt.Sprintf("TUTORA|%s|%s|%s", e.ID, e.UserID, e.CourseID)
}

// PassPNG génère le QR d'accès ; seule une inscription active en a un
func PassPNG(e models.Enrollment, size int) ([]byte, error) {
	if e.Status != models.EnrollmentActive {
		return nil, apperr.Rule(apperr.ReasonNotEnrolled, "Le pass n'est disponible que pour une inscription active")
	}
	if size <= 0 {
		size = PassSize
	}
	png, err := qrcode.Encode(PassPayload(e), qrcode.Medium, size)
	if err != nil {
		return nil, fmt.Errorf("erreur génération QR: %w", err)
	}
	return png, nil
}

// PassDataURI : QR en base64 prêt à mettre dans <img src="...">
func PassDataURI(e models.Enrollment) (string, error) {
	png, err := PassPNG(e, PassSize)
	if err != nil {
		return "", err
	}
	return "data:image/png;base64," + base64.StdEncoding.EncodeToString(png), nil
}
