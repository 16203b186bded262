package service

import (
	"regexp"
	"strconv"
	"strings"
	"time"

	"autoapprove/internal/model"
)

// MaxMinutes верхняя граница интервала бэкапа и задержки одобрения: один год
const MaxMinutes = 525600

var (
	digitsPattern   = regexp.MustCompile(`^\d+$`)
	intervalPattern = regexp.MustCompile(`^(?:(\d+)\s*h)?\s*(?:(\d+)\s*m)?$`)
)

// ParseInterval разбирает интервал в минутах: "30", "30m", "2h", "1h30m"
func ParseInterval(text string) (int, error) {
	s := strings.ToLower(strings.TrimSpace(text))
	if s == "" {
		return 0, model.NewValidationError("interval is empty", "interval")
	}

	if digitsPattern.MatchString(s) {
		minutes, err := strconv.Atoi(s)
		if err != nil {
			return 0, model.NewValidationError("interval is out of range", "interval")
		}
		if minutes <= 0 {
			return 0, model.NewValidationError("interval must be positive", "interval")
		}
		if minutes > MaxMinutes {
			return 0, model.NewValidationError("interval is out of range", "interval")
		}
		return minutes, nil
	}

	match := intervalPattern.FindStringSubmatch(s)
	if match == nil {
		return 0, model.NewValidationError("invalid interval format, use 30, 45m, 2h or 1h30m", "interval")
	}

	var total int
	if match[1] != "" {
		hours, err := strconv.Atoi(match[1])
		if err != nil || hours > MaxMinutes/60 {
			return 0, model.NewValidationError("interval is out of range", "interval")
		}
		total += hours * 60
	}
	if match[2] != "" {
		minutes, err := strconv.Atoi(match[2])
		if err != nil || minutes > MaxMinutes {
			return 0, model.NewValidationError("interval is out of range", "interval")
		}
		total += minutes
	}

	if total <= 0 {
		return 0, model.NewValidationError("interval must be positive", "interval")
	}
	if total > MaxMinutes {
		return 0, model.NewValidationError("interval is out of range", "interval")
	}
	return total, nil
}

// ParseDelay разбирает задержку одобрения: неотрицательное целое число минут
func ParseDelay(text string) (int, error) {
	s := strings.TrimSpace(text)
	if !digitsPattern.MatchString(s) {
		return 0, model.NewValidationError("delay must be a non-negative integer", "approval_delay_minutes")
	}
	minutes, err := strconv.Atoi(s)
	if err != nil || minutes > MaxMinutes {
		return 0, model.NewValidationError("delay is out of range", "approval_delay_minutes")
	}
	return minutes, nil
}

// minutesDuration переводит минуты в time.Duration, ограничивая значение MaxMinutes.
// Нужна для значений, пришедших из файла в обход ParseInterval/ParseDelay.
func minutesDuration(minutes int) time.Duration {
	if minutes > MaxMinutes {
		minutes = MaxMinutes
	}
	return time.Duration(minutes) * time.Minute
}
