package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"mobicomm_store/internal/services"
)

// reminderd sweeps for plans that lapse within the next few days and
// asks the backend to email those subscribers. The cadence comes from
// the persisted RRULE schedule; the ticker only decides how often we
// look at the clock.
func main() {
	// Load environment variables
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, using system environment")
	}

	username := os.Getenv("ADMIN_USERNAME")
	password := os.Getenv("ADMIN_PASSWORD")
	if username == "" || password == "" {
		log.Fatal("ADMIN_USERNAME and ADMIN_PASSWORD must be set")
	}

	backend := services.NewBackendClient()

	var cache *services.RedisCache
	if redisURL := os.Getenv("REDIS_URL"); redisURL != "" {
		var err error
		cache, err = services.NewRedisCache(redisURL)
		if err != nil {
			log.Printf("Warning: Redis unavailable, schedule will not persist: %v", err)
			cache = nil
		} else {
			defer cache.Close()
		}
	}

	reminders := services.NewReminderService(backend, cache)

	log.Println("Reminder worker started. Waiting for next tick...")

	// Create context that cancels on interrupt
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Handle graceful shutdown
	go func() {
		sigChan := make(chan os.Signal, 1)
		signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
		<-sigChan
		log.Println("Shutting down reminder worker...")
		cancel()
	}()

	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	runIfDue(ctx, reminders, backend, username, password)

	for {
		select {
		case <-ticker.C:
			runIfDue(ctx, reminders, backend, username, password)
		case <-ctx.Done():
			return
		}
	}
}

// runIfDue executes one sweep when the schedule says it is time
func runIfDue(ctx context.Context, reminders *services.ReminderService, backend *services.BackendClient, username, password string) {
	sched := reminders.LoadSchedule(ctx)
	if time.Now().Before(sched.NextRun) {
		return
	}

	// A fresh grant per run; worker grants are short-lived
	grant, err := backend.Login(ctx, username, password)
	if err != nil || grant.Token == "" {
		log.Printf("Worker login failed: %v", err)
		return
	}
	if !grant.IsAdmin() {
		log.Fatal("Worker account does not have admin access")
	}

	sent, err := reminders.RunSweep(ctx, grant.Token)
	if err != nil {
		log.Printf("Reminder sweep failed: %v", err)
		return
	}
	log.Printf("Reminder sweep complete: %d reminders sent", sent)

	if _, err := reminders.AdvanceSchedule(ctx, sched); err != nil {
		log.Printf("Failed to advance schedule: %v", err)
	}
}
