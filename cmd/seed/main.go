package main

import (
	"context"
	_ "embed"
	"errors"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"gopkg.in/yaml.v3"

	"docflow/backend/internal/audit"
	"docflow/backend/internal/config"
	"docflow/backend/internal/engine"
	"docflow/backend/internal/hooks"
	"docflow/backend/internal/logging"
	"docflow/backend/internal/repository"
	"docflow/backend/internal/services"
	"docflow/backend/pkg/models"
)

//go:embed seed.yaml
var defaultSeed []byte

// seedFile is the layout of the seed YAML. Step assignees may be given as
// e-mail addresses of seeded users; they are resolved to user ids.
type seedFile struct {
	Users     []models.User `yaml:"users"`
	Workflows []struct {
		Name       string        `yaml:"name"`
		Collection string        `yaml:"collection_name"`
		Steps      []models.Step `yaml:"steps"`
	} `yaml:"workflows"`
	Documents map[string][]map[string]any `yaml:"documents"`
}

func main() {
	configPath := flag.String("config", "", "Path to config.yaml")
	seedPath := flag.String("file", "", "Path to a seed YAML file (default: built-in dev data)")
	flag.Parse()

	ctx := context.Background()
	logger, err := logging.NewLogger(logging.Options{Development: true, Service: "docflow-seed"})
	if err != nil {
		log.Fatalf("Failed to create logger: %v", err)
	}
	defer func() { _ = logger.Sync() }()

	cfg, err := config.LoadConfig(*configPath)
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	data := defaultSeed
	if *seedPath != "" {
		if data, err = os.ReadFile(*seedPath); err != nil {
			log.Fatalf("Failed to read seed file: %v", err)
		}
	}
	var seed seedFile
	if err := yaml.Unmarshal(data, &seed); err != nil {
		log.Fatalf("Failed to parse seed file: %v", err)
	}

	pool, err := pgxpool.New(ctx, cfg.DSN())
	if err != nil {
		log.Fatalf("Failed to connect to DB: %v", err)
	}
	defer pool.Close()

	store := repository.NewPostgresStore(pool)
	if err := store.Migrate(ctx); err != nil {
		log.Fatalf("Failed to migrate DB: %v", err)
	}

	sink := audit.NewStoreSink(store)
	eng := engine.New(store, sink, logger)
	registry := hooks.NewRegistry(eng, logger)
	svc := services.NewWorkflowService(store, hooks.NewStore(store, registry), registry, eng, sink, logger)
	if _, err := svc.RestoreHooks(ctx); err != nil {
		log.Fatalf("Failed to restore hooks: %v", err)
	}

	if err := run(ctx, store, svc, logger, &seed); err != nil {
		log.Fatalf("Seeding failed: %v", err)
	}
	logger.Info("Seeding complete!")
}

func run(ctx context.Context, store repository.Repository, svc *services.WorkflowService, logger *logging.Logger, seed *seedFile) error {
	// 1. Users; the first admin acts for everything that follows
	idByEmail := make(map[string]string, len(seed.Users))
	var admin *models.Actor
	for i := range seed.Users {
		u := seed.Users[i]
		existing, err := store.GetUserByEmail(ctx, u.Email)
		switch {
		case err == nil:
			logger.Info("Found existing user", "email", u.Email, "id", existing.ID)
			u = *existing
		case errors.Is(err, repository.ErrNotFound):
			if u.ID == "" {
				u.ID = uuid.New().String()
			}
			if err := store.CreateUser(ctx, &u); err != nil {
				return fmt.Errorf("create user %s: %w", u.Email, err)
			}
			logger.Info("Seeded user", "email", u.Email, "id", u.ID, "role", u.Role)
		default:
			return fmt.Errorf("look up user %s: %w", u.Email, err)
		}
		idByEmail[strings.ToLower(u.Email)] = u.ID
		if admin == nil && u.Role == models.RoleAdmin {
			admin = &models.Actor{ID: u.ID, Email: u.Email, Role: u.Role}
		}
	}
	if admin == nil {
		return errors.New("seed file has no admin user")
	}

	// 2. Workflows, skipping collections that already have one
	existingWorkflows, err := svc.ListWorkflows(ctx, admin)
	if err != nil {
		return fmt.Errorf("list existing workflows: %w", err)
	}
	bound := make(map[string]bool, len(existingWorkflows))
	for _, w := range existingWorkflows {
		bound[w.TargetCollection] = true
	}

	for _, w := range seed.Workflows {
		if bound[w.Collection] {
			logger.Info("Skipping existing workflow", "name", w.Name, "collection", w.Collection)
			continue
		}
		steps := make([]models.Step, len(w.Steps))
		copy(steps, w.Steps)
		for i := range steps {
			if id, ok := idByEmail[strings.ToLower(steps[i].AssignedTo)]; ok {
				steps[i].AssignedTo = id
			}
		}
		wf, err := svc.CreateWorkflow(ctx, admin, &models.Workflow{Name: w.Name, TargetCollection: w.Collection, Steps: steps})
		if err != nil {
			return fmt.Errorf("create workflow %s: %w", w.Name, err)
		}
		logger.Info("Seeded workflow", "name", wf.Name, "id", wf.ID, "collection", wf.TargetCollection)
	}

	// 3. Documents; creating them runs the workflow hooks
	for collection, docs := range seed.Documents {
		for _, data := range docs {
			doc, err := svc.CreateDocument(ctx, admin, collection, data)
			if services.IsKind(err, services.KindConflict) {
				logger.Info("Skipping existing document", "collection", collection, "id", data["id"])
				continue
			}
			if err != nil {
				return fmt.Errorf("create document in %s: %w", collection, err)
			}
			logger.Info("Seeded document", "collection", collection, "id", doc.ID)
		}
	}
	return nil
}
