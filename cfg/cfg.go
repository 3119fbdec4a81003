package cfg

type (
	App struct {
		Name    string
		Version string
	}

	Mysql struct {
		Host                  string
		Port                  string
		Username              string
		Password              string
		Database              string
		MaxIdleConnection     int
		MaxOpenConnection     int
		MaxLifeTimeConnection int
	}

	GithubApi struct {
		Tokens            []string
		SearchApiUrl      string
		ReadmeApiUrl      string
		CollaboratorsUrl  string
		PerPage           int
		MaxPages          int
		RequestTimeoutSec int
		RequestsPerSecond int
		ThrottleDelay     int

		// Quota bookkeeping cho từng token
		QuotaCeiling      int
		LowWatermark      int
		RateLimitResetMin int
	}

	// Crawler chứa các tham số điều khiển quá trình enumerate và harvest.
	// Các heuristic về step size được tune theo phân bố sao thực tế của GitHub,
	// chỉ thay đổi tham số chứ không thay đổi control law shrink-on-saturation.
	Crawler struct {
		MinStars        int
		MaxStars        int
		Workers         int
		ReadmeCharLimit int
		ReposPerRound   int
		ResetMarginSec  int

		SparseThreshold   int
		DenseThreshold    int
		GrowFactor        int
		ShrinkFactor      float64
		SaturationDivisor int
		MaxShrinkAttempts int
		MinStepSize       int
		MaxStepSize       int
	}

	Cache struct {
		Dir           string
		FreshnessDays int
	}

	Csv struct {
		Path string
	}

	Kafka struct {
		Enabled  bool
		Brokers  []string
		Producer KafkaProducer
	}

	KafkaProducer struct {
		TopicReadme string
	}

	Classifier struct {
		ApiUrl            string
		ApiKey            string
		Model             string
		MaxRetries        int
		MaxChars          int
		RequestTimeoutSec int
		InputCsv          string
		OutputCsv         string
	}

	// Filter chặn dữ liệu harvest theo khoảng sao/collaborator rồi chỉ giữ
	// repo có emoji chính trị trong readme hoặc description.
	// Max bằng 0 nghĩa là không giới hạn trên.
	Filter struct {
		InputCsv         string
		OutputCsv        string
		MinStars         int
		MaxStars         int
		MinCollaborators int
		MaxCollaborators int
	}

	Webhook struct {
		Url string
	}
)

type Config struct {
	App        App
	Mysql      Mysql
	GithubApi  GithubApi
	Crawler    Crawler
	Cache      Cache
	Csv        Csv
	Kafka      Kafka
	Classifier Classifier
	Filter     Filter
	Webhook    Webhook
}
