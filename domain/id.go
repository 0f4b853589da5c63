package domain

import "go.mongodb.org/mongo-driver/v2/bson"

// NewID generates a new entity ID as an ObjectID hex string. All store
// backends use this format so that ID validation stays backend-agnostic.
func NewID() string {
	return bson.NewObjectID().Hex()
}

// ValidID reports whether s is a well-formed entity ID.
func ValidID(s string) bool {
	_, err := bson.ObjectIDFromHex(s)
	return err == nil
}
