package notify

import (
	"context"
	"encoding/json"
	"log"
	"time"

	"github.com/hibiken/asynq"
	"github.com/jackc/pgx/v5"

	"github.com/planora-app/planora/internal/db"
)

const TaskNotificationEmail = "email:notification"

// NotificationEmailPayload mirrors an in-app notification onto email.
// The recipient's address is resolved at delivery time, not enqueue time.
type NotificationEmailPayload struct {
	RecipientID string    `json:"recipient_id"`
	Type        string    `json:"type"`
	Title       string    `json:"title"`
	Body        string    `json:"body"`
	Reference   string    `json:"reference"`
	SentAt      time.Time `json:"sent_at"`
}

var (
	client *asynq.Client
	server *asynq.Server
)

// InitQueue starts the Asynq server and initializes a shared client.
func InitQueue(redisAddr string) {
	opts := asynq.RedisClientOpt{Addr: redisAddr}
	client = asynq.NewClient(opts)

	mux := asynq.NewServeMux()
	mux.HandleFunc(TaskNotificationEmail, handleNotificationEmail)

	server = asynq.NewServer(opts, asynq.Config{
		Concurrency: 5,
		Queues: map[string]int{
			"emails": 10,
		},
	})
	go func() {
		if err := server.Run(mux); err != nil {
			log.Printf("Asynq server stopped: %v", err)
		}
	}()

	log.Printf("Asynq initialized (addr=%s)", redisAddr)
}

// CloseQueue releases the client and stops the server.
func CloseQueue() {
	if client != nil {
		_ = client.Close()
	}
	if server != nil {
		server.Shutdown()
	}
}

// QueueEmailer satisfies Emailer over the shared asynq client.
type QueueEmailer struct{}

func (QueueEmailer) EnqueueNotificationEmail(recipientID, ntype, title, body, reference string) error {
	payload := NotificationEmailPayload{
		RecipientID: recipientID,
		Type:        ntype,
		Title:       title,
		Body:        body,
		Reference:   reference,
		SentAt:      time.Now(),
	}
	b, _ := json.Marshal(payload)
	task := asynq.NewTask(TaskNotificationEmail, b)
	_, err := client.Enqueue(task, asynq.Queue("emails"))
	return err
}

func handleNotificationEmail(ctx context.Context, t *asynq.Task) error {
	var p NotificationEmailPayload
	if err := json.Unmarshal(t.Payload(), &p); err != nil {
		return err
	}

	var email string
	err := db.Conn.QueryRow(ctx, `SELECT email FROM users WHERE id = $1`, p.RecipientID).Scan(&email)
	if err == pgx.ErrNoRows {
		// Recipient gone; nothing to deliver.
		return nil
	}
	if err != nil {
		return err
	}

	if err := SendEmail(email, p.Title, p.Body); err != nil {
		log.Printf("[notify][ERROR] notification email send failed: %v", err)
		return err
	}
	log.Printf("[notify] notification email sent -> type=%s to=%s", p.Type, email)
	return nil
}
