package db

import (
	"context"
	"log"
	"os"

	"github.com/joho/godotenv"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	UserCollection        *mongo.Collection
	FacilitiesCollection  *mongo.Collection
	FloorsCollection      *mongo.Collection
	SlotsCollection       *mongo.Collection
	BookingsCollection    *mongo.Collection
	VehiclesCollection    *mongo.Collection
	PaymentsCollection    *mongo.Collection
	IdempotencyCollection *mongo.Collection
	Client                *mongo.Client
)

// Initialize MongoDB connection
func init() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found; using system environment")
	}

	uri := os.Getenv("MONGODB_URI")
	if uri == "" {
		uri = "mongodb://localhost:27017"
	}

	var err error
	ClientOptions := options.Client().ApplyURI(uri)
	Client, err = mongo.Connect(context.TODO(), ClientOptions)
	if err != nil {
		log.Fatalf("Failed to connect to MongoDB: %v", err)
	}

	database := Client.Database("parkdb")
	UserCollection = database.Collection("users")
	FacilitiesCollection = database.Collection("facilities")
	FloorsCollection = database.Collection("floors")
	SlotsCollection = database.Collection("slots")
	BookingsCollection = database.Collection("bookings")
	VehiclesCollection = database.Collection("vehicles")
	PaymentsCollection = database.Collection("payments")
	IdempotencyCollection = database.Collection("idempotency")
}

// EnsureIndexes creates the indexes the allocator and check-in flows rely on.
func EnsureIndexes(ctx context.Context) error {
	_, err := BookingsCollection.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{
			Keys: bson.D{{Key: "slotid", Value: 1}, {Key: "status", Value: 1}, {Key: "startTime", Value: 1}},
		},
		{
			Keys:    bson.D{{Key: "ticketId", Value: 1}},
			Options: options.Index().SetUnique(true).SetSparse(true),
		},
	})
	if err != nil {
		return err
	}

	_, err = FloorsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "facilityid", Value: 1}, {Key: "number", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = SlotsCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "floorid", Value: 1}, {Key: "slotNumber", Value: 1}},
		Options: options.Index().SetUnique(true),
	})
	if err != nil {
		return err
	}

	_, err = VehiclesCollection.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "ticketId", Value: 1}},
		Options: options.Index().SetUnique(true).SetSparse(true),
	})
	return err
}
