package repository_test

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	goredis "github.com/redis/go-redis/v9"
	tc "github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"github.com/vnkhanh/erp-questionnaire/cache"
	"github.com/vnkhanh/erp-questionnaire/models"
	"github.com/vnkhanh/erp-questionnaire/paging"
	"github.com/vnkhanh/erp-questionnaire/repository"
)

func TestPostgresUpsertAndCatalog(t *testing.T) {
	if testing.Short() {
		t.Skip("integration test")
	}
	ctx := context.Background()
	requireDocker(t)

	dsn, pgCleanup := startPostgres(t, ctx)
	defer pgCleanup()
	redisAddr, redisCleanup := startRedis(t, ctx)
	defer redisCleanup()

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{Logger: logger.Default.LogMode(logger.Silent)})
	if err != nil {
		t.Fatalf("connect pg: %v", err)
	}
	if err := repository.Migrate(db); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	store := repository.New(db, paging.Options{PageSize: 1})

	yes := "Yes"
	parent := uint(1)
	err = store.InsertQuestions(ctx, []models.Form{{ID: 1, Name: "ERP Discovery"}}, []models.Question{
		{ID: 1, FormID: 1, Section: "General", Type: "radio", Label: "Uses ERP?", Options: `[{"label":"Yes","value":"Yes"},{"label":"No","value":"No"}]`, Status: "active"},
		{ID: 2, FormID: 1, Section: "General", Type: "text", Label: "Which one?", ParentQuestionID: &parent, ConditionValue: &yes, Status: "active"},
	})
	if err != nil {
		t.Fatalf("insert questions: %v", err)
	}

	org := models.Organization{ContactName: "Ana", ContactEmail: "ana@example.com"}
	if err := store.SaveOrganization(ctx, &org); err != nil {
		t.Fatalf("save organization: %v", err)
	}
	for _, answer := range []string{"No", "Yes"} {
		rows := []models.Response{
			{OrganizationID: org.ID, QuestionID: 1, Answer: answer},
			{OrganizationID: org.ID, QuestionID: 2, Answer: ""},
		}
		if err := store.UpsertResponses(ctx, rows); err != nil {
			t.Fatalf("upsert %q: %v", answer, err)
		}
	}
	got, err := store.ResponsesByOrganization(ctx, org.ID, 1)
	if err != nil {
		t.Fatalf("responses: %v", err)
	}
	if len(got) != 2 || got[0].Answer != "Yes" {
		t.Fatalf("expected two rows with the latest answer, got %+v", got)
	}

	client := goredis.NewClient(&goredis.Options{Addr: redisAddr})
	defer client.Close()
	catalog := cache.NewRedisCatalog(client, store, time.Minute, nil)
	qs, err := catalog.Questions(ctx, 1)
	if err != nil {
		t.Fatalf("catalog: %v", err)
	}
	if len(qs) != 2 || qs[1].ParentID == nil || *qs[1].ParentID != 1 {
		t.Fatalf("unexpected catalog %+v", qs)
	}
	if n, err := client.Exists(ctx, "catalog:form:1").Result(); err != nil || n != 1 {
		t.Fatalf("catalog was not cached: n=%d err=%v", n, err)
	}
}

func requireDocker(t *testing.T) {
	t.Helper()
	if _, err := tc.NewDockerProvider(); err != nil {
		t.Skipf("docker not available: %v", err)
	}
}

func startContainer(t *testing.T, ctx context.Context, req tc.ContainerRequest) tc.Container {
	t.Helper()
	container, err := tc.GenericContainer(ctx, tc.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
	})
	if err != nil {
		if strings.Contains(err.Error(), "Cannot connect to the Docker daemon") {
			t.Skipf("docker not available: %v", err)
		}
		t.Fatalf("start %s: %v", req.Image, err)
	}
	return container
}

func startPostgres(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "postgres:15-alpine",
		Env:          map[string]string{"POSTGRES_USER": "erp", "POSTGRES_PASSWORD": "erppass", "POSTGRES_DB": "erpdb"},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor:   wait.ForLog("database system is ready to accept connections").WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	})
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("host: %v", err)
	}
	port, err := container.MappedPort(ctx, "5432/tcp")
	if err != nil {
		t.Fatalf("port: %v", err)
	}
	dsn := fmt.Sprintf("postgres://erp:erppass@%s:%s/erpdb?sslmode=disable", host, port.Port())
	return dsn, func() {
		_ = container.Terminate(ctx)
	}
}

func startRedis(t *testing.T, ctx context.Context) (string, func()) {
	t.Helper()
	container := startContainer(t, ctx, tc.ContainerRequest{
		Image:        "redis:7-alpine",
		ExposedPorts: []string{"6379/tcp"},
		WaitingFor:   wait.ForListeningPort("6379/tcp").WithStartupTimeout(30 * time.Second),
	})
	host, err := container.Host(ctx)
	if err != nil {
		t.Fatalf("redis host: %v", err)
	}
	port, err := container.MappedPort(ctx, "6379/tcp")
	if err != nil {
		t.Fatalf("redis port: %v", err)
	}
	return host + ":" + port.Port(), func() {
		_ = container.Terminate(ctx)
	}
}
