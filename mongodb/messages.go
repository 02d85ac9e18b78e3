package mongodb

import (
	"context"
	"fmt"

	"github.com/Abhijeet14d/KrishiBandhu/models"
	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// CreateMessage appends one transcript entry. Transcripts are
// append-only; chat continuity lives in the session manager, storage
// exists for durability and replay.
func CreateMessage(ctx context.Context, message *models.Message) error {
	collection := MongoClient.Database(MongoDatabase).Collection(MessageCollection)
	_, err := collection.InsertOne(ctx, message)
	if err != nil {
		return fmt.Errorf("error creating message: %v", err)
	}
	return nil
}

func GetMessagesByConversationID(ctx context.Context, conversationID string) ([]models.Message, error) {
	collection := MongoClient.Database(MongoDatabase).Collection(MessageCollection)
	filter := bson.M{
		"conversation_id": conversationID,
	}
	opts := options.Find().SetSort(bson.D{{Key: "timestamp", Value: 1}})

	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, fmt.Errorf("error fetching messages: %v", err)
	}
	defer cursor.Close(ctx)

	var messages []models.Message
	for cursor.Next(ctx) {
		var message models.Message
		if err := cursor.Decode(&message); err != nil {
			return nil, fmt.Errorf("error decoding message: %v", err)
		}
		messages = append(messages, message)
	}

	if err := cursor.Err(); err != nil {
		return nil, fmt.Errorf("cursor error: %v", err)
	}

	return messages, nil
}

func CountUserMessages(ctx context.Context, conversationID string) (int64, error) {
	collection := MongoClient.Database(MongoDatabase).Collection(MessageCollection)
	count, err := collection.CountDocuments(ctx, bson.M{
		"conversation_id": conversationID,
		"role":            models.RoleUser,
	})
	if err != nil {
		return 0, fmt.Errorf("error counting messages: %v", err)
	}
	return count, nil
}

func DeleteMessages(ctx context.Context, conversationID string) error {
	collection := MongoClient.Database(MongoDatabase).Collection(MessageCollection)
	_, err := collection.DeleteMany(ctx, bson.M{"conversation_id": conversationID})
	if err != nil {
		return fmt.Errorf("error deleting messages: %v", err)
	}
	return nil
}
