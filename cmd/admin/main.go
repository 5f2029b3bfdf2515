package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"os/signal"
	"strconv"
	"syscall"
	"time"

	"pairchat/backend/internal/config"
	"pairchat/backend/internal/models"
	"pairchat/backend/internal/storage"

	"github.com/mama165/sdk-go/logs"
	"github.com/olekukonko/tablewriter"
	"github.com/redis/go-redis/v9"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const usage = `Usage: admin <command> [args]

Commands:
  rooms            list active rooms
  room <room_id>   show one room
  user <user_id>   show a user's matching details
  queue            list users waiting for a partner
  watch            stream session lifecycle events`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	slogger := logs.GetLoggerFromString(cfg.LogLevel)

	command := os.Args[1]
	switch command {
	case "rooms":
		s := storage.NewStorageService(openDB(cfg), nil, 0, slogger)
		if err := listRooms(s); err != nil {
			log.Fatalf("Error listing rooms: %v", err)
		}
	case "room":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin room <room_id>")
			os.Exit(1)
		}
		s := storage.NewStorageService(openDB(cfg), nil, 0, slogger)
		room, err := s.GetRoomByID(os.Args[2])
		if err != nil {
			log.Fatalf("Error showing room: %v", err)
		}
		printJSON(room)
	case "user":
		if len(os.Args) != 3 {
			fmt.Println("Usage: admin user <user_id>")
			os.Exit(1)
		}
		s := storage.NewStorageService(openDB(cfg), nil, 0, slogger)
		user, err := s.GetUserByID(os.Args[2])
		if err != nil {
			log.Fatalf("Error showing user: %v", err)
		}
		printJSON(user)
	case "queue":
		s := storage.NewStorageService(openDB(cfg), openRedis(cfg), 0, slogger)
		if err := listQueue(s); err != nil {
			log.Fatalf("Error reading queue: %v", err)
		}
	case "watch":
		s := storage.NewStorageService(nil, openRedis(cfg), 0, slogger)
		if err := watch(s); err != nil {
			log.Fatalf("Error watching events: %v", err)
		}
	default:
		fmt.Println("Unknown command")
		fmt.Println(usage)
		os.Exit(1)
	}
}

func openDB(cfg *config.Config) *gorm.DB {
	db, err := gorm.Open(postgres.Open(cfg.DatabaseDSN), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	if err != nil {
		log.Fatalf("failed to connect database: %v", err)
	}
	return db
}

func openRedis(cfg *config.Config) *redis.Client {
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := rdb.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("failed to connect redis: %v", err)
	}
	return rdb
}

func listRooms(s *storage.Service) error {
	rooms, err := s.ListActiveRooms()
	if err != nil {
		return err
	}

	table := newTable("Room ID", "User 1", "User 2", "Started")
	for _, r := range rooms {
		table.Append([]string{r.RoomID, r.User1ID, r.User2ID, r.StartedAt.Format(time.RFC3339)})
	}
	table.Render()
	fmt.Printf("%d active room(s)\n", len(rooms))
	return nil
}

// listQueue joins the Redis pool mirror with the users' stored preferences.
// Ids without a user row are still listed.
func listQueue(s *storage.Service) error {
	ids, err := s.GetSearchingUsers()
	if err != nil {
		return err
	}
	users, err := s.GetUsersByIDs(ids)
	if err != nil {
		return err
	}
	byID := make(map[string]models.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	table := newTable("User ID", "Age", "Gender", "Looking for")
	for _, id := range ids {
		u, ok := byID[id]
		if !ok {
			table.Append([]string{id, "?", "?", "?"})
			continue
		}
		table.Append([]string{id, strconv.Itoa(u.Age), u.Gender, u.PartnerPreferredGender})
	}
	table.Render()
	fmt.Printf("%d user(s) waiting\n", len(ids))
	return nil
}

func newTable(header ...string) *tablewriter.Table {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader(header)
	table.SetAutoWrapText(false)
	table.SetHeaderAlignment(tablewriter.ALIGN_LEFT)
	table.SetAlignment(tablewriter.ALIGN_LEFT)
	table.SetBorder(false)
	table.SetHeaderLine(false)
	table.SetCenterSeparator("")
	table.SetColumnSeparator("")
	table.SetRowSeparator("")
	table.SetTablePadding("\t")
	return table
}

func watch(s *storage.Service) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	sub := s.SubscribeToEvents(ctx)
	defer sub.Close()
	if _, err := sub.Receive(ctx); err != nil {
		return err
	}
	fmt.Printf("Watching %s, Ctrl+C to stop\n", storage.EventsChannel)

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return nil
		case msg, ok := <-ch:
			if !ok {
				return nil
			}
			var evt models.SessionEvent
			if err := json.Unmarshal([]byte(msg.Payload), &evt); err != nil {
				fmt.Printf("unreadable event: %s\n", msg.Payload)
				continue
			}
			fmt.Printf("%s  %-8s room=%s users=%v %s\n",
				time.Unix(evt.At, 0).Format(time.RFC3339), evt.Kind, evt.RoomID, evt.Users, evt.Reason)
		}
	}
}

func printJSON(v interface{}) {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		log.Fatalf("Error encoding output: %v", err)
	}
}
