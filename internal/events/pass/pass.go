package pass

import (
	"crypto/aes"
	"crypto/cipher"
	"crypto/rand"
	"crypto/sha256"
	"encoding/base64"
	"encoding/json"
	"io"
	"time"

	"events-system/internal/models"

	"github.com/skip2/go-qrcode"
)

// Payload is what a door scanner sees after decrypting a pass: enough to
// greet the attendee and check the registration against the event without a
// database round trip.
type Payload struct {
	RegistrationID   int64     `json:"registrationId"`
	EventID          int64     `json:"eventId"`
	EventTitle       string    `json:"eventTitle"`
	EventDate        time.Time `json:"eventDate"`
	UserID           string    `json:"userId"`
	RegistrationDate time.Time `json:"registrationDate"`
	IssuedAt         time.Time `json:"issuedAt"`
}

// Generator renders registration passes: the registration and its event are
// folded into a payload, encrypted and encoded as a QR PNG.
type Generator struct {
	secret []byte
}

func NewGenerator(secret string) *Generator {
	hashed := sha256.Sum256([]byte(secret)) // normalize to 32 bytes
	return &Generator{secret: hashed[:]}
}

// GeneratePass returns a PNG QR code whose payload is the AES-encrypted
// registration plus the event it admits to.
func (g *Generator) GeneratePass(registration models.Registration, event models.EventSummary) ([]byte, error) {
	payload := Payload{
		RegistrationID:   registration.ID,
		EventID:          registration.EventID,
		EventTitle:       event.Title,
		EventDate:        event.EventDate,
		UserID:           registration.UserID,
		RegistrationDate: registration.RegistrationDate,
		IssuedAt:         time.Now().UTC(),
	}

	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	encrypted, err := encryptAES(data, g.secret)
	if err != nil {
		return nil, err
	}

	return qrcode.Encode(encrypted, qrcode.Medium, 256)
}

func encryptAES(data []byte, key []byte) (string, error) {
	block, err := aes.NewCipher(key)
	if err != nil {
		return "", err
	}

	ciphertext := make([]byte, aes.BlockSize+len(data))
	iv := ciphertext[:aes.BlockSize]

	if _, err := io.ReadFull(rand.Reader, iv); err != nil {
		return "", err
	}

	stream := cipher.NewCFBEncrypter(block, iv)
	stream.XORKeyStream(ciphertext[aes.BlockSize:], data)

	return base64.URLEncoding.EncodeToString(ciphertext), nil
}
