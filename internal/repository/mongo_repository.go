package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/mikbell/forever/internal/domain"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// accountDocument is the slice of the account record owned by the cart store.
type accountDocument struct {
	ID            string      `bson:"_id"`
	Cart          domain.Cart `bson:"cart"`
	CartUpdatedAt time.Time   `bson:"cart_updated_at"`
	CreatedAt     time.Time   `bson:"created_at"`
}

type mongoRepository struct {
	collection *mongo.Collection
	now        func() time.Time
}

func NewMongoRepository(db *mongo.Database) CartRepository {
	return &mongoRepository{
		collection: db.Collection("accounts"),
		now:        time.Now,
	}
}

func cartPath(itemID, size string) string {
	return fmt.Sprintf("cart.%s.%s", itemID, size)
}

func (m *mongoRepository) GetCart(ctx context.Context, accountID string) (domain.Cart, error) {
	var doc accountDocument
	opts := options.FindOne().SetProjection(bson.M{"cart": 1, "cart_updated_at": 1})
	err := m.collection.FindOne(ctx, bson.M{"_id": accountID}, opts).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrCartNotFound
		}
		return nil, fmt.Errorf("failed to get cart: %w", err)
	}
	return doc.Cart.Normalize(), nil
}

// AddItem increments one (item, size) counter, creating the account document if absent.
func (m *mongoRepository) AddItem(ctx context.Context, accountID, itemID, size string, delta int) error {
	now := m.now()
	update := bson.M{
		"$inc":         bson.M{cartPath(itemID, size): delta},
		"$set":         bson.M{"cart_updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := m.collection.UpdateOne(ctx, bson.M{"_id": accountID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to add item: %w", err)
	}
	return nil
}

func (m *mongoRepository) SetQuantity(ctx context.Context, accountID, itemID, size string, quantity int) error {
	if quantity == 0 {
		return m.RemoveItem(ctx, accountID, itemID, size)
	}

	now := m.now()
	update := bson.M{
		"$set":         bson.M{cartPath(itemID, size): quantity, "cart_updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := m.collection.UpdateOne(ctx, bson.M{"_id": accountID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to update item quantity: %w", err)
	}
	return nil
}

// RemoveItem unsets the size entry, then drops the item if no sizes remain.
// Readers never observe the transient empty item because GetCart normalizes.
func (m *mongoRepository) RemoveItem(ctx context.Context, accountID, itemID, size string) error {
	filter := bson.M{"_id": accountID}
	update := bson.M{
		"$unset": bson.M{cartPath(itemID, size): ""},
		"$set":   bson.M{"cart_updated_at": m.now()},
	}
	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove item: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil
	}

	itemPath := "cart." + itemID
	prune := bson.M{"_id": accountID, itemPath: bson.M{}}
	if _, err := m.collection.UpdateOne(ctx, prune, bson.M{"$unset": bson.M{itemPath: ""}}); err != nil {
		return fmt.Errorf("failed to prune empty item: %w", err)
	}
	return nil
}

func (m *mongoRepository) ClearCart(ctx context.Context, accountID string) error {
	update := bson.M{"$set": bson.M{"cart": bson.M{}, "cart_updated_at": m.now()}}
	if _, err := m.collection.UpdateOne(ctx, bson.M{"_id": accountID}, update); err != nil {
		return fmt.Errorf("failed to clear cart: %w", err)
	}
	return nil
}

// ClearCartIfUnchangedSince empties the cart only when nobody touched it after since.
func (m *mongoRepository) ClearCartIfUnchangedSince(ctx context.Context, accountID string, since time.Time) (bool, error) {
	filter := bson.M{"_id": accountID, "cart_updated_at": bson.M{"$lte": since}}
	update := bson.M{"$set": bson.M{"cart": bson.M{}, "cart_updated_at": m.now()}}
	result, err := m.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, fmt.Errorf("failed to clear cart: %w", err)
	}
	return result.ModifiedCount > 0, nil
}

func (m *mongoRepository) ReplaceCart(ctx context.Context, accountID string, cart domain.Cart) error {
	now := m.now()
	update := bson.M{
		"$set":         bson.M{"cart": cart.Normalize(), "cart_updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := m.collection.UpdateOne(ctx, bson.M{"_id": accountID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to replace cart: %w", err)
	}
	return nil
}

// MergeCart adds every quantity of cart onto the stored one in a single update.
func (m *mongoRepository) MergeCart(ctx context.Context, accountID string, cart domain.Cart) error {
	lines := cart.Lines()
	if len(lines) == 0 {
		return nil
	}

	inc := bson.M{}
	for _, line := range lines {
		inc[cartPath(line.ItemID, line.Size)] = line.Quantity
	}

	now := m.now()
	update := bson.M{
		"$inc":         inc,
		"$set":         bson.M{"cart_updated_at": now},
		"$setOnInsert": bson.M{"created_at": now},
	}
	_, err := m.collection.UpdateOne(ctx, bson.M{"_id": accountID}, update, options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to merge cart: %w", err)
	}
	return nil
}
