package storage

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"time"

	"pairchat/backend/internal/models"

	"github.com/lib/pq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

const (
	searchQueueKey    = "search_queue"
	preferencesPrefix = "prefs:"
	// EventsChannel is the Redis Pub/Sub channel for session lifecycle events.
	EventsChannel = "chat:events"
)

// ErrNotFound is returned when a user or room does not exist.
var ErrNotFound = errors.New("not found")

type Storage interface {
	SaveUser(user *models.User) error
	GetUserByID(userID string) (*models.User, error)
	GetUserByTelegramID(telegramID int64) (*models.User, error)
	GetPreferences(ctx context.Context, userID string) (*models.User, error)

	SaveRoom(room *models.ChatRoom) error
	CloseRoom(roomID, reason string) error
	CloseAllActiveRooms() (int64, error)
	GetActiveRoomIDs() ([]string, error)
	GetRoomByID(roomID string) (*models.ChatRoom, error)
	ListActiveRooms() ([]models.ChatRoom, error)
	GetUsersByIDs(userIDs []string) ([]models.User, error)

	AddUserToSearchQueue(userID string) error
	RemoveUserFromSearchQueue(userID string) error
	GetSearchingUsers() ([]string, error)
	ClearSearchQueue() error

	PublishEvent(evt models.SessionEvent) error
}

type Service struct {
	DB       *gorm.DB
	Redis    *redis.Client
	Ctx      context.Context
	CacheTTL time.Duration
	Log      *slog.Logger
}

// NewStorageService Constructor. rdb may be nil (admin tooling, tests); the
// cache and the queue mirror are then skipped.
func NewStorageService(db *gorm.DB, rdb *redis.Client, cacheTTL time.Duration, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	return &Service{
		DB:       db,
		Redis:    rdb,
		Ctx:      context.Background(),
		CacheTTL: cacheTTL,
		Log:      log,
	}
}

// SaveUser зберігає користувача в PostgreSQL та скидає кеш вподобань.
func (s *Service) SaveUser(user *models.User) error {
	if err := s.DB.Save(user).Error; err != nil {
		return err
	}
	if s.Redis != nil && user.ID != "" {
		if err := s.Redis.Del(s.Ctx, preferencesPrefix+user.ID).Err(); err != nil {
			s.Log.Warn("Failed to drop cached preferences", "user_id", user.ID, "error", err)
		}
	}
	return nil
}

func (s *Service) GetUserByID(userID string) (*models.User, error) {
	var user models.User
	err := s.DB.Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

func (s *Service) GetUserByTelegramID(telegramID int64) (*models.User, error) {
	var user models.User
	err := s.DB.Where("telegram_id = ?", telegramID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetPreferences повертає вподобання користувача: спочатку з Redis, потім з PostgreSQL.
// Cache failures are logged and fall through to the database.
func (s *Service) GetPreferences(ctx context.Context, userID string) (*models.User, error) {
	key := preferencesPrefix + userID

	if s.Redis != nil {
		raw, err := s.Redis.Get(ctx, key).Bytes()
		switch {
		case err == nil:
			var cached models.User
			if jsonErr := json.Unmarshal(raw, &cached); jsonErr == nil {
				return &cached, nil
			}
		case !errors.Is(err, redis.Nil):
			s.Log.Warn("Preference cache read failed", "user_id", userID, "error", err)
		}
	}

	var user models.User
	err := s.DB.WithContext(ctx).Where("id = ?", userID).First(&user).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	if s.Redis != nil {
		if data, err := json.Marshal(user); err == nil {
			if err := s.Redis.Set(ctx, key, data, s.CacheTTL).Err(); err != nil {
				s.Log.Warn("Preference cache write failed", "user_id", userID, "error", err)
			}
		}
	}
	return &user, nil
}

// SaveRoom зберігає кімнату в PostgreSQL
func (s *Service) SaveRoom(room *models.ChatRoom) error {
	return s.DB.Save(room).Error
}

// CloseRoom закриває кімнату, встановлюючи IsActive = false та EndedAt = NOW()
func (s *Service) CloseRoom(roomID, reason string) error {
	return s.DB.Model(&models.ChatRoom{}).
		Where("room_id = ?", roomID).
		Updates(map[string]interface{}{
			"is_active":  false,
			"ended_at":   gorm.Expr("NOW()"),
			"end_reason": reason,
		}).Error
}

// CloseAllActiveRooms marks every active room as ended. Live sessions exist
// only in memory, so rows still active at startup belong to a dead process.
func (s *Service) CloseAllActiveRooms() (int64, error) {
	result := s.DB.Model(&models.ChatRoom{}).
		Where("is_active = ?", true).
		Updates(map[string]interface{}{
			"is_active":  false,
			"ended_at":   gorm.Expr("NOW()"),
			"end_reason": "restart",
		})
	return result.RowsAffected, result.Error
}

// GetActiveRoomIDs повертає список усіх RoomID, які є активними в даний момент.
func (s *Service) GetActiveRoomIDs() ([]string, error) {
	var roomIDs []string
	if err := s.DB.Model(&models.ChatRoom{}).
		Where("is_active = ?", true).
		Pluck("room_id", &roomIDs).Error; err != nil {
		s.Log.Error("Failed to retrieve active room ids", "error", err)
		return nil, err
	}
	return roomIDs, nil
}

func (s *Service) GetRoomByID(roomID string) (*models.ChatRoom, error) {
	var room models.ChatRoom
	err := s.DB.Where("room_id = ?", roomID).First(&room).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		s.Log.Error("Failed to get room", "room_id", roomID, "error", err)
		return nil, err
	}
	return &room, nil
}

// ListActiveRooms повертає активні кімнати від найстарішої.
func (s *Service) ListActiveRooms() ([]models.ChatRoom, error) {
	var rooms []models.ChatRoom
	err := s.DB.Where("is_active = ?", true).Order("started_at").Find(&rooms).Error
	return rooms, err
}

// GetUsersByIDs loads every user in userIDs with a single ANY($1) lookup.
// Unknown ids are skipped.
func (s *Service) GetUsersByIDs(userIDs []string) ([]models.User, error) {
	if len(userIDs) == 0 {
		return nil, nil
	}
	var users []models.User
	err := s.DB.Where("id = ANY(?)", pq.Array(userIDs)).Find(&users).Error
	return users, err
}

// AddUserToSearchQueue додає користувача до дзеркала черги пошуку в Redis
func (s *Service) AddUserToSearchQueue(userID string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.SAdd(s.Ctx, searchQueueKey, userID).Err()
}

// RemoveUserFromSearchQueue видаляє користувача з дзеркала черги пошуку в Redis
func (s *Service) RemoveUserFromSearchQueue(userID string) error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.SRem(s.Ctx, searchQueueKey, userID).Err()
}

// GetSearchingUsers повертає всіх користувачів, які зараз шукають пару
func (s *Service) GetSearchingUsers() ([]string, error) {
	if s.Redis == nil {
		return nil, nil
	}
	return s.Redis.SMembers(s.Ctx, searchQueueKey).Result()
}

// ClearSearchQueue empties the mirror; the in-memory pool starts empty on boot.
func (s *Service) ClearSearchQueue() error {
	if s.Redis == nil {
		return nil
	}
	return s.Redis.Del(s.Ctx, searchQueueKey).Err()
}

// PublishEvent публікує подію життєвого циклу сесії в Redis Pub/Sub
func (s *Service) PublishEvent(evt models.SessionEvent) error {
	if s.Redis == nil {
		return nil
	}
	data, err := json.Marshal(evt)
	if err != nil {
		return err
	}
	return s.Redis.Publish(s.Ctx, EventsChannel, data).Err()
}

// SubscribeToEvents returns a subscription to the session lifecycle channel.
func (s *Service) SubscribeToEvents(ctx context.Context) *redis.PubSub {
	return s.Redis.Subscribe(ctx, EventsChannel)
}
