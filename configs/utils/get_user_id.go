package utils

import (
	"errors"

	"github.com/gin-gonic/gin"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// GetUserID reads the authenticated user id the auth middleware stored on
// the request context.
func GetUserID(c *gin.Context) (primitive.ObjectID, error) {
	userIDToken, exists := c.Get("user_id")
	if !exists {
		return primitive.NilObjectID, errors.New("user_id not found in context")
	}
	hex, ok := userIDToken.(string)
	if !ok {
		return primitive.NilObjectID, errors.New("user_id in context is not a string")
	}
	userID, err := primitive.ObjectIDFromHex(hex)
	if err != nil {
		return primitive.NilObjectID, errors.New("user_id in context is not a valid object id")
	}
	return userID, nil
}
