package storage

import (
	"context"
	"fmt"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/rezapratama/strukparse/configs"
	"github.com/rezapratama/strukparse/internal/receipt"
)

const receiptsCollection = "receipts"

var mongoClient *mongo.Client
var mongoDB *mongo.Database

// InitMongoDB initializes MongoDB connection
func InitMongoDB() error {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	clientOptions := options.Client().ApplyURI(configs.MONGO_URI)
	client, err := mongo.Connect(ctx, clientOptions)
	if err != nil {
		return fmt.Errorf("failed to connect to MongoDB: %w", err)
	}

	// Ping to verify connection
	if err := client.Ping(ctx, nil); err != nil {
		return fmt.Errorf("failed to ping MongoDB: %w", err)
	}

	mongoClient = client
	mongoDB = client.Database(configs.MONGO_DB_NAME)

	log.Println("✅ Connected to MongoDB successfully!")
	return nil
}

// CloseMongoDB closes MongoDB connection
func CloseMongoDB() {
	if mongoClient != nil {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		mongoClient.Disconnect(ctx)
		log.Println("MongoDB connection closed")
	}
}

// SaveRecord persists a processed receipt record.
func SaveRecord(record *receipt.Record) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	collection := mongoDB.Collection(receiptsCollection)
	_, err := collection.InsertOne(ctx, record)
	if err != nil {
		return fmt.Errorf("failed to save receipt %s: %w", record.ReceiptID, err)
	}

	return nil
}

// GetRecord retrieves a receipt record by its receipt_id.
func GetRecord(receiptID string) (*receipt.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	collection := mongoDB.Collection(receiptsCollection)

	var record receipt.Record
	err := collection.FindOne(ctx, bson.M{"receipt_id": receiptID}).Decode(&record)
	if err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, fmt.Errorf("receipt not found: %s", receiptID)
		}
		return nil, fmt.Errorf("failed to query receipt: %w", err)
	}

	return &record, nil
}

// ListRecordsByStatus retrieves records with the given review status, newest
// first, capped at limit.
func ListRecordsByStatus(status receipt.Status, limit int64) ([]receipt.Record, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if limit <= 0 {
		limit = 50
	}

	collection := mongoDB.Collection(receiptsCollection)
	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit)

	cursor, err := collection.Find(ctx, bson.M{"status": status}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query receipts: %w", err)
	}
	defer cursor.Close(ctx)

	var records []receipt.Record
	if err = cursor.All(ctx, &records); err != nil {
		return nil, err
	}

	return records, nil
}
