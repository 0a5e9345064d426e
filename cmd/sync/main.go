package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/classtrack/schoolsync-backend/internal/db"
	"github.com/classtrack/schoolsync-backend/internal/logger"
	"github.com/classtrack/schoolsync-backend/internal/mirror"
	"github.com/classtrack/schoolsync-backend/internal/repos"
	"github.com/classtrack/schoolsync-backend/internal/services"
	"github.com/classtrack/schoolsync-backend/internal/syncer"
	"github.com/classtrack/schoolsync-backend/internal/utils"
)

type idList []string

func (l *idList) String() string { return strings.Join(*l, ",") }
func (l *idList) Set(v string) error {
	v = strings.TrimSpace(v)
	if v != "" {
		*l = append(*l, v)
	}
	return nil
}

func main() {
	var staff idList
	var sparse int
	var workers int
	flag.Var(&staff, "staff", "staff source_object_id to sync (repeatable; default all)")
	flag.IntVar(&sparse, "sparse", 0, "sync every Nth staff member only")
	flag.IntVar(&workers, "workers", 1, "number of concurrent staff pipelines")
	flag.Parse()

	logMode := os.Getenv("LOG_MODE")
	if logMode == "" {
		logMode = "development"
	}
	log, err := logger.New(logMode)
	if err != nil {
		fmt.Printf("init logger: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	postgresService, err := db.NewPostgresService(log)
	if err != nil {
		fmt.Printf("init postgres: %v\n", err)
		os.Exit(1)
	}
	if err = postgresService.AutoMigrateAll(); err != nil {
		fmt.Printf("auto migrate: %v\n", err)
		os.Exit(1)
	}
	thePG := postgresService.DB()

	specs := syncer.DefaultSpecs()
	if mappingPath := utils.GetEnv("MAPPING_SPEC_PATH", "", log); mappingPath != "" {
		specs, err = syncer.LoadSpecs(mappingPath)
		if err != nil {
			fmt.Printf("load mapping specs: %v\n", err)
			os.Exit(1)
		}
	}

	store := syncer.NewGormStore(thePG, log)
	source := mirror.NewIlluminateAdapter(thePG, log)
	orch := syncer.NewOrchestrator(store, source, specs, log)
	syncService := services.NewSyncService(thePG, log, orch, repos.NewSyncRunRepo(thePG, log))

	opts := syncer.AllOptions{Sparse: sparse, Workers: workers}
	for _, raw := range staff {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			fmt.Printf("invalid staff source id %q\n", raw)
			os.Exit(1)
		}
		opts.StaffSourceIDs = append(opts.StaffSourceIDs, id)
	}

	result, err := syncService.RunAll(context.Background(), opts)
	if err != nil {
		fmt.Printf("sync failed: %v\n", err)
		os.Exit(1)
	}

	fmt.Println(result.Summary())
	for _, f := range result.Failures {
		fmt.Printf("staff %d failed: %s\n", f.StaffSourceID, f.Error)
	}
	fmt.Printf("done; staff=%d created=%d errors=%d failed=%d\n",
		result.StaffProcessed, result.TotalCreated(), result.TotalErrors(), len(result.Failures))
}
