package yaginmiddleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/gin-gonic/gin"
)

// TelegramSecretHeader carries the secret_token given to setWebhook.
const TelegramSecretHeader = "X-Telegram-Bot-Api-Secret-Token"

// SecretTokenHeader rejects requests whose secret header does not match the
// secret expected for the request.
//
// Resolve returns the expected secret; ok == false means the request targets
// nothing known and is answered with 404. An empty expected secret disables
// the check for that request.
//
// Example:
//
//	secret := yaginmiddleware.NewSecretToken(func(c *gin.Context) (string, bool) {
//		route, ok := routes.Get(c.Param("key"))
//		return route.secret, ok
//	})
//
//	r.POST("/webhook/:key/", secret.Handle, handler)
type SecretTokenHeader struct {
	HeaderName string
	Resolve    func(c *gin.Context) (expected string, ok bool)
}

// NewSecretToken builds a SecretTokenHeader reading TelegramSecretHeader.
func NewSecretToken(resolve func(c *gin.Context) (string, bool)) *SecretTokenHeader {
	return &SecretTokenHeader{
		HeaderName: TelegramSecretHeader,
		Resolve:    resolve,
	}
}

func (h *SecretTokenHeader) Handle(c *gin.Context) {
	expected, ok := h.Resolve(c)
	if !ok {
		c.AbortWithStatus(http.StatusNotFound)

		return
	}

	if expected == "" {
		c.Next()

		return
	}

	got := c.GetHeader(h.HeaderName)

	if subtle.ConstantTimeCompare([]byte(got), []byte(expected)) != 1 {
		c.AbortWithStatus(http.StatusUnauthorized)

		return
	}

	c.Next()
}
