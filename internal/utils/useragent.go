package utils

import (
	"strings"

	ua "github.com/mssola/user_agent"
)

// DeviceInfo holds parsed information from a User-Agent string
type DeviceInfo struct {
	Client     string `json:"client"`      // browser name or HTTP library (Go-http-client, okhttp)
	ClientVer  string `json:"client_ver"`  // client version
	OS         string `json:"os"`          // Linux, Windows 10, Android 12
	IsBot      bool   `json:"is_bot"`      // crawler or scanner
	IsMobile   bool   `json:"is_mobile"`   // mobile device
	IsServer   bool   `json:"is_server"`   // server-to-server caller (no browser engine)
	Raw        string `json:"raw"`         // original user agent string
}

// serverClients are HTTP libraries partners typically call us from
var serverClients = []string{"go-http-client", "okhttp", "python-requests", "axios", "curl", "java", "node-fetch", "apache-httpclient"}

// ParseUserAgent parses a User-Agent string and extracts device information
func ParseUserAgent(userAgent string) DeviceInfo {
	if userAgent == "" || userAgent == "Unknown" {
		return DeviceInfo{Client: "Unknown", OS: "Unknown", Raw: userAgent}
	}

	parser := ua.New(userAgent)
	name, version := parser.Browser()

	info := DeviceInfo{
		Client:    name,
		ClientVer: version,
		OS:        getOS(parser),
		IsBot:     parser.Bot(),
		IsMobile:  parser.Mobile(),
		Raw:       userAgent,
	}

	lower := strings.ToLower(userAgent)
	for _, lib := range serverClients {
		if strings.HasPrefix(lower, lib) {
			info.IsServer = true
			info.Client, info.ClientVer = splitProduct(userAgent)
			break
		}
	}

	if info.Client == "" {
		info.Client = "Unknown"
	}
	return info
}

// ToMap converts the device info into a JSON object for audit storage
func (d DeviceInfo) ToMap() map[string]interface{} {
	return map[string]interface{}{
		"client":     d.Client,
		"client_ver": d.ClientVer,
		"os":         d.OS,
		"is_bot":     d.IsBot,
		"is_mobile":  d.IsMobile,
		"is_server":  d.IsServer,
	}
}

// getOS extracts operating system name and version
func getOS(parser *ua.UserAgent) string {
	osInfo := parser.OSInfo()
	if osInfo.Name == "" {
		return "Unknown"
	}
	if osInfo.Version != "" {
		return osInfo.Name + " " + osInfo.Version
	}
	return osInfo.Name
}

// splitProduct splits "Go-http-client/1.1 extra" into ("Go-http-client", "1.1")
func splitProduct(userAgent string) (string, string) {
	product := strings.Fields(userAgent)[0]
	name, version, _ := strings.Cut(product, "/")
	return name, version
}
