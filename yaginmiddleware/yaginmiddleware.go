// Package yaginmiddleware provides the Gin middlewares of the webhook listener.
package yaginmiddleware

import "github.com/gin-gonic/gin"

// Middleware represents a generic Gin middleware component
// capable of processing requests via a `Handle` method.
type Middleware interface {
	Handle(ctx *gin.Context)
}

// Chain turns middlewares into gin handlers in the given order.
//
// Example:
//
//	r := gin.New()
//	r.Use(yaginmiddleware.Chain(logger, secret)...)
func Chain(middlewares ...Middleware) []gin.HandlerFunc {
	handlers := make([]gin.HandlerFunc, 0, len(middlewares))

	for _, middleware := range middlewares {
		handlers = append(handlers, middleware.Handle)
	}

	return handlers
}
