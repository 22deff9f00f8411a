package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// AppConfig 汇总运行服务所需的基础配置。
type AppConfig struct {
	ListenAddr        string
	Port              string
	DatabasePath      string
	SessionSecret     string
	GinMode           string
	SuperRootUserName string
	SuperRootPassword string

	// 循环训练引擎
	WorkoutPrepSeconds   int
	WorkoutActiveSeconds int
	WorkoutRestSeconds   int
	WorkoutExercises     []string
	WorkoutCalories      float64

	// 专注/休息循环引擎
	FocusMinutes      int
	ShortBreakMinutes int
	LongBreakMinutes  int
	FocusCycleLength  int
	FocusIntervals    int
}

// 默认的 12 个循环训练动作。
var defaultExercises = []string{
	"开合跳", "靠墙静蹲", "俯卧撑", "卷腹", "踏凳", "深蹲",
	"椅子臂屈伸", "平板支撑", "原地高抬腿", "弓步蹲", "旋转俯卧撑", "侧平板支撑",
}

// Load 从环境变量读取应用配置，并为缺失项提供安全的默认值。
func Load() AppConfig {
	port := strings.TrimSpace(os.Getenv("PORT"))
	if port == "" {
		port = "8080"
	}

	listenAddr := strings.TrimSpace(os.Getenv("LISTEN_ADDR"))
	if listenAddr == "" {
		listenAddr = fmt.Sprintf(":%s", port)
	}

	databasePath := strings.TrimSpace(os.Getenv("DATABASE_PATH"))
	if databasePath == "" {
		databasePath = "habitloop.db"
	}

	sessionSecret := strings.TrimSpace(os.Getenv("SESSION_SECRET"))
	if sessionSecret == "" {
		sessionSecret = "habitloop-dev-secret"
	}

	ginMode := strings.TrimSpace(os.Getenv("GIN_MODE"))
	if ginMode == "" {
		ginMode = "release"
	}

	superRootUserName := strings.TrimSpace(os.Getenv("SUPER_ROOT_USER_NAME"))
	superRootPassword := strings.TrimSpace(os.Getenv("SUPER_ROOT_PASSWORD"))

	return AppConfig{
		ListenAddr:        listenAddr,
		Port:              port,
		DatabasePath:      databasePath,
		SessionSecret:     sessionSecret,
		GinMode:           ginMode,
		SuperRootUserName: superRootUserName,
		SuperRootPassword: superRootPassword,

		WorkoutPrepSeconds:   envInt("WORKOUT_PREP_SECONDS", 10),
		WorkoutActiveSeconds: envInt("WORKOUT_ACTIVE_SECONDS", 30),
		WorkoutRestSeconds:   envInt("WORKOUT_REST_SECONDS", 10),
		WorkoutExercises:     envList("WORKOUT_EXERCISES", defaultExercises),
		WorkoutCalories:      envFloat("WORKOUT_CALORIES_PER_SESSION", 50),

		FocusMinutes:      envInt("FOCUS_MINUTES", 25),
		ShortBreakMinutes: envInt("SHORT_BREAK_MINUTES", 5),
		LongBreakMinutes:  envInt("LONG_BREAK_MINUTES", 15),
		FocusCycleLength:  envInt("FOCUS_CYCLE_LENGTH", 4),
		FocusIntervals:    envInt("FOCUS_INTERVALS", 4),
	}
}

func envInt(name string, fallback int) int {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.Atoi(raw)
	if err != nil || value <= 0 {
		return fallback
	}
	return value
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	value, err := strconv.ParseFloat(raw, 64)
	if err != nil || value < 0 {
		return fallback
	}
	return value
}

func envList(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}

	parts := strings.Split(raw, ",")
	values := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			values = append(values, trimmed)
		}
	}
	if len(values) == 0 {
		return fallback
	}
	return values
}
