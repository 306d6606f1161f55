package bootstrap

import (
	"github.com/spf13/viper"
)

type Config struct {
	ServerPort           string `mapstructure:"SERVER_PORT"`
	RedisUrl             string `mapstructure:"REDIS_URL"`
	MongoUri             string `mapstructure:"MONGO_URI"`
	IsLocalCors          bool   `mapstructure:"LOCAL_CORS"`
	S3Endpoint           string `mapstructure:"S3_ENDPOINT"`
	S3Region             string `mapstructure:"S3_REGION"`
	S3Bucket             string `mapstructure:"S3_BUCKET"`
	S3AccessKeyID        string `mapstructure:"S3_ACCESS_KEY_ID"`
	S3AccessKeySecret    string `mapstructure:"S3_ACCESS_KEY_SECRET"`
	CdnBaseUrl           string `mapstructure:"CDN_BASE_URL"`
	PageLimitLeaderboard int    `mapstructure:"PAGE_LIMIT_LEADERBOARD"`
	PageLimitProblems    int    `mapstructure:"PAGE_LIMIT_PROBLEMS"`
}

func Setup(cfgPath string) (*Config, error) {
	viper.SetConfigFile(cfgPath)

	err := viper.ReadInConfig()
	if err != nil {
		return nil, err
	}

	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("PAGE_LIMIT_LEADERBOARD", 10)
	viper.SetDefault("PAGE_LIMIT_PROBLEMS", 20)

	var cfg Config

	err = viper.Unmarshal(&cfg)
	if err != nil {
		return nil, err
	}

	return &cfg, nil
}
