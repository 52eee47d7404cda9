package config

type Config struct {
	// 浏览器驱动: "rod" 或 "chromedp"
	Driver string `json:"driver"`

	Rod struct {
		UserMode                         bool   `json:"user_mode"`
		UserDataDir                      string `json:"user_data_dir"`
		Headless                         bool   `json:"headless"`
		DisableBlinkFeatures             string `json:"disable_blink_features"`
		Incognito                        bool   `json:"incognito"`
		DisableDevShmUsage               bool   `json:"disable_dev_shm_usage"`
		NoSandbox                        bool   `json:"no_sandbox"`
		UserAgent                        string `json:"user_agent"`
		Leakless                         bool   `json:"leakless"`
		Bin                              string `json:"bin"`
		DisableBackgroundNetworking      bool   `json:"disable_background_networking"`
		DisableBackgroundTimerThrottling bool   `json:"disable_background_timer_throttling"`
		RemoteDebuggingPort              int    `json:"remote_debugging_port"`
		Trace                            bool   `json:"trace"`
		NavigationTimeout                int    `json:"navigation_timeout"`
	} `json:"rod"`

	Chromedp struct {
		LifeTime             int    `json:"life_time"`
		UserDataDir          string `json:"user_data_dir"`
		Headless             bool   `json:"headless"`
		DisableBlinkFeatures string `json:"disable_blink_features"`
		Incognito            bool   `json:"incognito"`
		DisableDevShmUsage   bool   `json:"disable_dev_shm_usage"`
		NoSandbox            bool   `json:"no_sandbox"`
		UserAgent            string `json:"user_agent"`
		NavigationTimeout    int    `json:"navigation_timeout"`
	} `json:"chromedp"`

	Auth struct {
		CookieFile string `json:"cookie_file"`
		// 手动登录最长等待时间(秒)
		ManualLoginTimeout int `json:"manual_login_timeout"`
		// 以下两项通常来自环境变量 LINKEDIN_EMAIL / LINKEDIN_PASSWORD
		Email    string `json:"email"`
		Password string `json:"password"`
	} `json:"auth"`

	Scraper struct {
		MaxProfilesPerSession int `json:"max_profiles_per_session"`
		MaxSearchPages        int `json:"max_search_pages"`
		ResultsPerPage        int `json:"results_per_page"`
		// "barrier": 轮询等待结构化数据到达; "fixed": 固定等待
		CaptureMode string `json:"capture_mode"`
		// 页面加载后等待异步响应的时间(毫秒)
		SettleMillis int `json:"settle_ms"`
		// 联系方式弹窗等待时间(毫秒)
		ContactSettleMillis int `json:"contact_settle_ms"`
		FetchDetails        bool `json:"fetch_details"`
	} `json:"scraper"`

	// 所有时间单位为秒
	Pacing struct {
		MinDelay           float64 `json:"min_delay"`
		MaxDelay           float64 `json:"max_delay"`
		LongPauseEvery     int     `json:"long_pause_every"`
		LongPauseMin       float64 `json:"long_pause_min"`
		LongPauseMax       float64 `json:"long_pause_max"`
		SearchPageDelayMin float64 `json:"search_page_delay_min"`
		SearchPageDelayMax float64 `json:"search_page_delay_max"`
		ScrollPauseMin     float64 `json:"scroll_pause_min"`
		ScrollPauseMax     float64 `json:"scroll_pause_max"`
		// 每分钟最多动作数, 0 表示不限制
		MaxActionsPerMinute float64 `json:"max_actions_per_minute"`
	} `json:"pacing"`

	Export struct {
		OutputDir string `json:"output_dir"`
		// csv, excel, both
		Format string `json:"format"`
	} `json:"export"`

	Elasticsearch struct {
		Enabled  bool   `json:"enabled"`
		Username string `json:"username"`
		Password string `json:"password"`
		Address  string `json:"address"`
		Index    string `json:"index"`
	} `json:"elasticsearch"`

	Embedder struct {
		Enabled   bool   `json:"enabled"`
		Host      string `json:"host"`
		Port      int    `json:"port"`
		Model     string `json:"model"`
		BatchSize int    `json:"batch_size"`
		Dims      int    `json:"dims"`
	} `json:"embedder"`
}
