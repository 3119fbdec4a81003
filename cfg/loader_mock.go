package cfg

type MockLoader struct{}

func NewMockLoader() (*MockLoader, error) {
	return &MockLoader{}, nil
}

func (yl *MockLoader) Load() (*Config, error) {
	return &Config{
		// App
		App: App{
			Name:    "readme-crawler",
			Version: "0.0.1",
		},

		// Mysql
		Mysql: Mysql{
			Host:                  "127.0.0.1",
			Password:              "root",
			Username:              "root",
			Port:                  "3306",
			Database:              "readme_crawler",
			MaxIdleConnection:     10,
			MaxOpenConnection:     100,
			MaxLifeTimeConnection: 3600,
		},

		// GithubApi
		GithubApi: GithubApi{
			Tokens:            []string{"mock-token-1", "mock-token-2"},
			SearchApiUrl:      "https://api.github.com/search/repositories",
			ReadmeApiUrl:      "https://api.github.com/repos/{user}/{repo}/readme",
			CollaboratorsUrl:  "https://api.github.com/repos/{user}/{repo}/collaborators",
			PerPage:           100,
			MaxPages:          10,
			RequestTimeoutSec: 30,
			RequestsPerSecond: 8,
			ThrottleDelay:     200,
			QuotaCeiling:      5000,
			LowWatermark:      10,
			RateLimitResetMin: 60,
		},

		// Crawler
		Crawler: Crawler{
			MinStars:          1000,
			MaxStars:          160000,
			Workers:           8,
			ReadmeCharLimit:   10000,
			ReposPerRound:     8000,
			ResetMarginSec:    30,
			SparseThreshold:   100,
			DenseThreshold:    500,
			GrowFactor:        3,
			ShrinkFactor:      0.8,
			SaturationDivisor: 3,
			MaxShrinkAttempts: 5,
			MinStepSize:       10,
			MaxStepSize:       10000,
		},

		// Cache
		Cache: Cache{
			Dir:           ".cache",
			FreshnessDays: 7,
		},

		// Csv
		Csv: Csv{
			Path: "github_readmes_batch.csv",
		},

		// Kafka
		Kafka: Kafka{
			Enabled: false,
			Brokers: []string{"127.0.0.1:9092"},
			Producer: KafkaProducer{
				TopicReadme: "readme-records",
			},
		},

		// Classifier
		Classifier: Classifier{
			ApiUrl:            "https://api.deepseek.com/chat/completions",
			ApiKey:            "mock-key",
			Model:             "deepseek-chat",
			MaxRetries:        3,
			MaxChars:          3000,
			RequestTimeoutSec: 30,
			InputCsv:          "github_readmes_batch.csv",
			OutputCsv:         "github_affiliation.csv",
		},

		// Filter
		Filter: Filter{
			InputCsv:         "github_readmes_batch.csv",
			OutputCsv:        "github_filtered.csv",
			MinStars:         1000,
			MaxStars:         200000,
			MinCollaborators: 0,
			MaxCollaborators: 0,
		},

		// Webhook
		Webhook: Webhook{
			Url: "",
		},
	}, nil
}
