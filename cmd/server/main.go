package main

import (
	"log"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/habitloop/internal/config"
	"github.com/habitloop/internal/db"
	"github.com/habitloop/internal/engine"
	"github.com/habitloop/internal/handler"
	"github.com/habitloop/internal/router"
	"github.com/habitloop/internal/service"
)

func main() {
	cfg := config.Load()
	gin.SetMode(cfg.GinMode)

	// 初始化数据库
	if err := db.Init(cfg.DatabasePath); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}

	// 按需创建超级管理员
	if err := db.EnsureUser(cfg.SuperRootUserName, cfg.SuperRootPassword); err != nil {
		log.Fatalf("failed to ensure root user: %v", err)
	}

	workoutTracker, err := service.NewTrackerService(db.DB, service.TrackerOptions{
		Prefix:             "workout",
		CaloriesPerSession: cfg.WorkoutCalories,
	})
	if err != nil {
		log.Fatalf("failed to load workout tracker: %v", err)
	}

	focusTracker, err := service.NewTrackerService(db.DB, service.TrackerOptions{
		Prefix:               "focus",
		QualifyingCategories: []string{service.CategoryFocus},
	})
	if err != nil {
		log.Fatalf("failed to load focus tracker: %v", err)
	}

	for name, tracker := range map[string]*service.TrackerService{
		"workout": workoutTracker,
		"focus":   focusTracker,
	} {
		trackerName := name
		tracker.Subscribe(func(record service.SessionRecord) {
			log.Printf("session added: tracker=%s category=%s duration=%ds", trackerName, record.Category, record.Duration)
		})
	}

	workoutUnits := make([]engine.Unit, 0, len(cfg.WorkoutExercises))
	for _, exercise := range cfg.WorkoutExercises {
		workoutUnits = append(workoutUnits, engine.Unit{Name: exercise})
	}

	workoutEngine := engine.New(engine.Config{
		Category:       service.CategoryWorkout,
		PrepDuration:   time.Duration(cfg.WorkoutPrepSeconds) * time.Second,
		ActiveDuration: time.Duration(cfg.WorkoutActiveSeconds) * time.Second,
		RestDuration:   time.Duration(cfg.WorkoutRestSeconds) * time.Second,
		Units:          workoutUnits,
	}, engine.NewTickerTimer(time.Second))
	workoutEngine.SetCuer(engine.LogCuer{})

	focusUnits := make([]engine.Unit, 0, cfg.FocusIntervals)
	for i := 0; i < cfg.FocusIntervals; i++ {
		focusUnits = append(focusUnits, engine.Unit{Name: "专注"})
	}

	focusEngine := engine.New(engine.Config{
		Category:         service.CategoryFocus,
		ActiveDuration:   time.Duration(cfg.FocusMinutes) * time.Minute,
		RestDuration:     time.Duration(cfg.ShortBreakMinutes) * time.Minute,
		LongRestDuration: time.Duration(cfg.LongBreakMinutes) * time.Minute,
		CycleLength:      cfg.FocusCycleLength,
		Units:            focusUnits,
	}, engine.NewTickerTimer(time.Second))
	focusEngine.SetCuer(engine.LogCuer{})

	api := handler.NewAPI(map[string]handler.Pair{
		"workout": {Engine: workoutEngine, Tracker: workoutTracker},
		"focus":   {Engine: focusEngine, Tracker: focusTracker},
	})

	// 设置并运行 Gin 服务器
	r := router.Setup(api, cfg.SessionSecret)
	if err := r.Run(cfg.ListenAddr); err != nil {
		log.Fatalf("failed to run server: %v", err)
	}
}
