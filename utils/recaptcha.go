package utils

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"os"

	"flexkazi/freelancer-service/logging"
)

type CaptchaResponse struct {
	Success     bool     `json:"success"`
	ChallengeTs string   `json:"challenge_ts"`
	Hostname    string   `json:"hostname"`
	ErrorCodes  []string `json:"error-codes,omitempty"`
}

// VerifyCaptcha checks a reCAPTCHA token against the Google siteverify API.
// Signup skips the check entirely when RECAPTCHA_SECRET is not configured.
func VerifyCaptcha(token string) (bool, error) {
	secretKey := os.Getenv("RECAPTCHA_SECRET")
	if secretKey == "" {
		return true, nil
	}

	data := url.Values{}
	data.Set("secret", secretKey)
	data.Set("response", token)

	resp, err := http.PostForm("https://www.google.com/recaptcha/api/siteverify", data)
	if err != nil {
		logging.Logger.Errorf("Event ID: VERIFY_CAPTCHA_HTTP_POST_FAILED, Description: Error sending request to Google API: %v", err)
		return false, fmt.Errorf("error sending request to Google API: %v", err)
	}
	defer resp.Body.Close()

	var captchaResp CaptchaResponse
	if err := json.NewDecoder(resp.Body).Decode(&captchaResp); err != nil {
		logging.Logger.Errorf("Event ID: VERIFY_CAPTCHA_DECODE_FAILED, Description: Error decoding Google API response: %v", err)
		return false, fmt.Errorf("error decoding Google API response: %v", err)
	}

	if !captchaResp.Success {
		logging.Logger.Warnf("Event ID: VERIFY_CAPTCHA_FAILED, Description: reCAPTCHA verification failed. Error codes: %v", captchaResp.ErrorCodes)
	}

	return captchaResp.Success, nil
}
