// Command seed fills the database with demo accounts and notes.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand/v2"
	"os"
	"strings"
	"time"

	"github.com/notekeep/notekeep/internal/repository"
	"github.com/notekeep/notekeep/internal/service"
)

var demoUsers = []string{"alice", "bob", "charlie", "diana"}

var words = []string{
	"garden", "river", "lantern", "morning", "paper", "quiet", "harbor", "maple",
	"window", "signal", "copper", "meadow", "thunder", "violet", "engine", "saddle",
	"orbit", "pencil", "canyon", "ember", "willow", "ticket", "marble", "anchor",
}

func main() {
	var (
		databaseURL  = flag.String("database-url", os.Getenv("DATABASE_URL"), "PostgreSQL connection string")
		reset        = flag.Bool("reset", false, "Delete all users and notes before seeding")
		password     = flag.String("password", "password", "Password for every demo account")
		notesPerUser = flag.Int("notes-per-user", 3, "Notes created for each new account")
	)
	flag.Parse()

	if *databaseURL == "" {
		fmt.Fprintln(os.Stderr, "DATABASE_URL is required")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := repository.Migrate(*databaseURL); err != nil {
		fmt.Fprintln(os.Stderr, "migrate:", err)
		os.Exit(1)
	}

	repo, err := repository.New(ctx, *databaseURL)
	if err != nil {
		fmt.Fprintln(os.Stderr, "connect database:", err)
		os.Exit(1)
	}
	defer repo.Close()

	if *reset {
		fmt.Println("Recreating database...")
		if err := repo.Truncate(ctx); err != nil {
			fmt.Fprintln(os.Stderr, err.Error())
			os.Exit(1)
		}
	}

	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	s := &seeder{
		auth:  service.NewAuthService(repo, nil, noTokens{}, nil, logger),
		notes: service.NewNoteService(repo, nil),
		rng:   rand.New(rand.NewPCG(uint64(time.Now().UnixNano()), 0)),
	}

	users, notes, err := s.run(ctx, demoUsers, *password, *notesPerUser)
	if err != nil {
		fmt.Fprintln(os.Stderr, err.Error())
		os.Exit(1)
	}

	fmt.Printf("Seeded %d users and %d notes.\n", users, notes)
}

// noTokens satisfies service.TokenIssuer; seeding never logs in.
type noTokens struct{}

func (noTokens) Issue(int64) (string, error) {
	return "", errors.New("token issuing disabled")
}

type seeder struct {
	auth  *service.AuthService
	notes *service.NoteService
	rng   *rand.Rand
}

// run creates each missing user with notesPerUser notes. Existing users are left untouched.
func (s *seeder) run(ctx context.Context, usernames []string, password string, notesPerUser int) (int, int, error) {
	var users, notes int
	for _, name := range usernames {
		user, err := s.auth.Signup(ctx, name, password)
		if errors.Is(err, service.ErrUsernameTaken) {
			fmt.Printf("user %s exists, skipping\n", name)
			continue
		}
		if err != nil {
			return users, notes, fmt.Errorf("create user %s: %w", name, err)
		}
		users++

		for i := 0; i < notesPerUser; i++ {
			if _, err := s.notes.Create(ctx, user.ID, s.sentence(3), s.paragraph(2)); err != nil {
				return users, notes, fmt.Errorf("create note for %s: %w", name, err)
			}
			notes++
		}
	}
	return users, notes, nil
}

func (s *seeder) sentence(n int) string {
	parts := make([]string, n)
	for i := range parts {
		parts[i] = words[s.rng.IntN(len(words))]
	}
	parts[0] = strings.ToUpper(parts[0][:1]) + parts[0][1:]
	return strings.Join(parts, " ") + "."
}

func (s *seeder) paragraph(sentences int) string {
	parts := make([]string, sentences)
	for i := range parts {
		parts[i] = s.sentence(4 + s.rng.IntN(5))
	}
	return strings.Join(parts, " ")
}
