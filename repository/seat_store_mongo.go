package repository

import (
	"context"
	"time"

	"cinema_booking/constants"
	"cinema_booking/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// seatDocument: mỗi ghế là một document, trạng thái theo từng suất chiếu nằm trong mảng showtimes.
type seatDocument struct {
	SeatId    uint                `bson:"_id"`
	RoomId    uint                `bson:"room_id"`
	Showtimes []showtimeSeatEntry `bson:"showtimes"`
}

type showtimeSeatEntry struct {
	ShowtimeId uint       `bson:"showtime_id"`
	Status     string     `bson:"status"`
	HeldBy     string     `bson:"held_by"`
	HeldAt     *time.Time `bson:"held_at"`
	TicketId   string     `bson:"ticket_id"`
	UpdatedAt  time.Time  `bson:"updated_at"`
}

type MongoSeatStore struct {
	coll *mongo.Collection
}

func NewMongoSeatStore(coll *mongo.Collection) *MongoSeatStore {
	return &MongoSeatStore{coll: coll}
}

func (e showtimeSeatEntry) toModel(seatId, roomId uint) model.ShowtimeSeat {
	row := model.ShowtimeSeat{
		ShowtimeId: e.ShowtimeId,
		SeatId:     seatId,
		RoomId:     roomId,
		Status:     e.Status,
		HeldBy:     e.HeldBy,
		TicketId:   e.TicketId,
	}
	row.UpdatedAt = e.UpdatedAt
	if e.HeldAt != nil {
		at := e.HeldAt.UTC()
		row.HeldAt = &at
	}
	return row
}

func (s *MongoSeatStore) GetStatus(ctx context.Context, key SeatKey) (*model.ShowtimeSeat, error) {
	opts := options.FindOne().SetProjection(bson.M{
		"room_id":   1,
		"showtimes": bson.M{"$elemMatch": bson.M{"showtime_id": key.ShowtimeId}},
	})

	var doc seatDocument
	err := s.coll.FindOne(ctx, bson.M{"_id": key.SeatId}, opts).Decode(&doc)
	if err == mongo.ErrNoDocuments {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if len(doc.Showtimes) == 0 {
		return nil, nil
	}
	row := doc.Showtimes[0].toModel(doc.SeatId, doc.RoomId)
	return &row, nil
}

func (s *MongoSeatStore) CompareAndSwap(ctx context.Context, key SeatKey, expect SeatExpectation, next SeatState) (bool, error) {
	if err := next.Validate(); err != nil {
		return false, err
	}

	if expect.Status == constants.SeatAvailable {
		if err := s.ensureEntry(ctx, key); err != nil {
			return false, err
		}
	}

	elem := bson.M{
		"showtime_id": key.ShowtimeId,
		"status":      expect.Status,
		"held_by":     expect.HeldBy,
		"ticket_id":   expect.TicketId,
	}
	if expect.HeldBefore != nil {
		elem["held_at"] = bson.M{"$lt": expect.HeldBefore.UTC()}
	}
	filter := bson.M{
		"_id":       key.SeatId,
		"showtimes": bson.M{"$elemMatch": elem},
	}
	update := bson.M{"$set": bson.M{
		"showtimes.$.status":     next.Status,
		"showtimes.$.held_by":    next.HeldBy,
		"showtimes.$.held_at":    next.HeldAt,
		"showtimes.$.ticket_id":  next.TicketId,
		"showtimes.$.updated_at": time.Now().UTC(),
	}}

	res, err := s.coll.UpdateOne(ctx, filter, update)
	if err != nil {
		return false, err
	}
	return res.MatchedCount == 1, nil
}

// ensureEntry tạo document ghế và phần tử AVAILABLE cho suất chiếu nếu chưa có.
func (s *MongoSeatStore) ensureEntry(ctx context.Context, key SeatKey) error {
	_, err := s.coll.UpdateOne(ctx,
		bson.M{"_id": key.SeatId},
		bson.M{"$setOnInsert": bson.M{"room_id": key.RoomId, "showtimes": bson.A{}}},
		options.Update().SetUpsert(true),
	)
	if err != nil && !mongo.IsDuplicateKeyError(err) {
		return err
	}

	_, err = s.coll.UpdateOne(ctx,
		bson.M{"_id": key.SeatId, "showtimes.showtime_id": bson.M{"$ne": key.ShowtimeId}},
		bson.M{"$push": bson.M{"showtimes": showtimeSeatEntry{
			ShowtimeId: key.ShowtimeId,
			Status:     constants.SeatAvailable,
			UpdatedAt:  time.Now().UTC(),
		}}},
	)
	return err
}

func (s *MongoSeatStore) ListByShowtime(ctx context.Context, showtimeId uint) ([]model.ShowtimeSeat, error) {
	opts := options.Find().
		SetProjection(bson.M{
			"room_id":   1,
			"showtimes": bson.M{"$elemMatch": bson.M{"showtime_id": showtimeId}},
		}).
		SetSort(bson.M{"_id": 1})

	cursor, err := s.coll.Find(ctx, bson.M{"showtimes.showtime_id": showtimeId}, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var docs []seatDocument
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, err
	}

	rows := make([]model.ShowtimeSeat, 0, len(docs))
	for _, doc := range docs {
		for _, entry := range doc.Showtimes {
			rows = append(rows, entry.toModel(doc.SeatId, doc.RoomId))
		}
	}
	return rows, nil
}

func (s *MongoSeatStore) FindStaleHolds(ctx context.Context, cutoff time.Time, limit int) ([]model.ShowtimeSeat, error) {
	stale := bson.M{"status": constants.SeatSelecting, "held_at": bson.M{"$lt": cutoff.UTC()}}
	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"showtimes": bson.M{"$elemMatch": stale}}}},
		{{Key: "$unwind", Value: "$showtimes"}},
		{{Key: "$match", Value: bson.M{
			"showtimes.status":  constants.SeatSelecting,
			"showtimes.held_at": bson.M{"$lt": cutoff.UTC()},
		}}},
		{{Key: "$sort", Value: bson.M{"showtimes.held_at": 1}}},
	}
	if limit > 0 {
		pipeline = append(pipeline, bson.D{{Key: "$limit", Value: limit}})
	}

	cursor, err := s.coll.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []model.ShowtimeSeat
	for cursor.Next(ctx) {
		var doc struct {
			SeatId    uint              `bson:"_id"`
			RoomId    uint              `bson:"room_id"`
			Showtimes showtimeSeatEntry `bson:"showtimes"`
		}
		if err := cursor.Decode(&doc); err != nil {
			return nil, err
		}
		rows = append(rows, doc.Showtimes.toModel(doc.SeatId, doc.RoomId))
	}
	return rows, cursor.Err()
}

// EnsureIndexes tạo index phục vụ truy vấn theo suất chiếu và quét ghế hết hạn.
func (s *MongoSeatStore) EnsureIndexes(ctx context.Context) error {
	_, err := s.coll.Indexes().CreateMany(ctx, []mongo.IndexModel{
		{Keys: bson.D{{Key: "showtimes.showtime_id", Value: 1}}},
		{Keys: bson.D{{Key: "showtimes.status", Value: 1}, {Key: "showtimes.held_at", Value: 1}}},
	})
	return err
}
