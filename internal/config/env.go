package config

import (
	"strings"

	"citibike/internal/utils"

	"github.com/spf13/viper"
)

type Env struct {
	AppAddr string
	GinMode string

	DBDriver string
	DBDSN    string
	DBHost   string
	DBPort   string
	DBUser   string
	DBPass   string
	DBName   string

	S3Bucket   string
	S3Region   string
	S3Endpoint string
	SourceDir  string
	KeyFormat  string

	FirstMonth   int
	LastMonth    int
	HistoryTable string
	StagingTable string

	DuplicatePolicy string

	JWTSecret         string
	AdminUsername     string
	AdminPasswordHash string
	CORSOrigins       []string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_ADDR", ":8080")
	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("POSTGRES_USER", "default")
	v.SetDefault("POSTGRES_PASS", "default")
	v.SetDefault("POSTGRES_DBNAME", "default")
	v.SetDefault("S3_BUCKET", "tripdata")
	v.SetDefault("S3_REGION", "us-east-1")
	v.SetDefault("KEY_FORMAT", "2018%02d-citibike-tripdata.csv.zip")
	v.SetDefault("FIRST_MONTH", 1)
	v.SetDefault("LAST_MONTH", 7)
	v.SetDefault("HISTORY_TABLE", "trip_fact")
	v.SetDefault("STAGING_TABLE", "trip_fact_stg")
	v.SetDefault("DUPLICATE_POLICY", "last_wins")
	v.SetDefault("ADMIN_USERNAME", "admin")
	v.SetDefault("CORS_ALLOWED_ORIGINS", "http://localhost:3000,http://127.0.0.1:3000,http://localhost:5173,http://127.0.0.1:5173")
}

// LoadEnv reads configuration from the environment, overlaid on an optional
// config file. An empty configFile means environment only.
func LoadEnv(configFile string) (Env, error) {
	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	if strings.TrimSpace(configFile) != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return Env{}, err
		}
	}

	return fromViper(v), nil
}

func fromViper(v *viper.Viper) Env {
	str := func(key string) string { return strings.TrimSpace(v.GetString(key)) }

	return Env{
		AppAddr: str("APP_ADDR"),
		GinMode: str("GIN_MODE"),

		DBDriver: strings.ToLower(str("DB_DRIVER")),
		DBDSN:    str("DB_DSN"),
		DBHost:   str("DB_HOST"),
		DBPort:   str("DB_PORT"),
		DBUser:   str("POSTGRES_USER"),
		DBPass:   v.GetString("POSTGRES_PASS"),
		DBName:   str("POSTGRES_DBNAME"),

		S3Bucket:   str("S3_BUCKET"),
		S3Region:   str("S3_REGION"),
		S3Endpoint: str("S3_ENDPOINT"),
		SourceDir:  str("SOURCE_DIR"),
		KeyFormat:  str("KEY_FORMAT"),

		FirstMonth:   v.GetInt("FIRST_MONTH"),
		LastMonth:    v.GetInt("LAST_MONTH"),
		HistoryTable: str("HISTORY_TABLE"),
		StagingTable: str("STAGING_TABLE"),

		DuplicatePolicy: strings.ToLower(str("DUPLICATE_POLICY")),

		JWTSecret:         v.GetString("JWT_SECRET"),
		AdminUsername:     str("ADMIN_USERNAME"),
		AdminPasswordHash: str("ADMIN_PASSWORD_HASH"),
		CORSOrigins:       utils.SplitList(str("CORS_ALLOWED_ORIGINS")),
	}
}
