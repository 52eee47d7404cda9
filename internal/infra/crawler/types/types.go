package types

// NetworkResponse 浏览器中捕获到的一个已完成的网络响应
type NetworkResponse struct {
	Url        string
	UrlPattern string
	Status     int
	Body       []byte
}

// Cookie 与浏览器驱动无关的cookie表示, 用于持久化登录状态
type Cookie struct {
	Name     string  `json:"name"`
	Value    string  `json:"value"`
	Domain   string  `json:"domain"`
	Path     string  `json:"path"`
	Expires  float64 `json:"expires,omitempty"`
	HTTPOnly bool    `json:"httpOnly"`
	Secure   bool    `json:"secure"`
}
