package checkin

import (
	"testing"
	"time"

	"club_access/internal/models"

	"github.com/stretchr/testify/assert"
)

func entryAt(t time.Time) *models.CheckinEvent {
	return &models.CheckinEvent{ScannedAt: t}
}

func TestDecideUnknownToken(t *testing.T) {
	d := Decide(nil, nil, time.Now())
	assert.Equal(t, OutcomeDenied, d.Outcome)
	assert.Equal(t, WarningInvalidQR, d.WarningCode)
	assert.False(t, d.Granted())
}

func TestDecideBlockedMember(t *testing.T) {
	member := &models.Member{Blocked: true}
	now := time.Now()

	// Заблокированному отказ независимо от истории сканирований.
	d := Decide(member, nil, now)
	assert.Equal(t, OutcomeDenied, d.Outcome)
	assert.Equal(t, WarningMemberBlocked, d.WarningCode)

	d = Decide(member, entryAt(now.Add(-time.Hour)), now)
	assert.Equal(t, OutcomeDenied, d.Outcome)
	assert.Equal(t, WarningMemberBlocked, d.WarningCode)
}

func TestDecideFirstScan(t *testing.T) {
	d := Decide(&models.Member{}, nil, time.Now())
	assert.Equal(t, OutcomeGranted, d.Outcome)
	assert.Empty(t, d.WarningCode)
	assert.True(t, d.Granted())
}

func TestDecidePassbackWindow(t *testing.T) {
	member := &models.Member{}
	now := time.Now()

	// 4 минуты назад — проход разрешён, но с предупреждением.
	d := Decide(member, entryAt(now.Add(-4*time.Minute)), now)
	assert.Equal(t, OutcomeGranted, d.Outcome)
	assert.Equal(t, WarningPassback, d.WarningCode)
	assert.Equal(t, 4, d.WarningMinutes)

	// Ровно 5 минут — предупреждения уже нет.
	d = Decide(member, entryAt(now.Add(-5*time.Minute)), now)
	assert.Equal(t, OutcomeGranted, d.Outcome)
	assert.Empty(t, d.WarningCode)

	// Больше 5 минут — тоже нет.
	d = Decide(member, entryAt(now.Add(-42*time.Minute)), now)
	assert.Empty(t, d.WarningCode)
}

func TestDecidePassbackRounding(t *testing.T) {
	member := &models.Member{}
	now := time.Now()

	// 0.4 минуты → показываем минимум 1.
	d := Decide(member, entryAt(now.Add(-24*time.Second)), now)
	assert.Equal(t, WarningPassback, d.WarningCode)
	assert.Equal(t, 1, d.WarningMinutes)

	// 2.6 минуты → округление до 3.
	d = Decide(member, entryAt(now.Add(-156*time.Second)), now)
	assert.Equal(t, WarningPassback, d.WarningCode)
	assert.Equal(t, 3, d.WarningMinutes)

	// 2 минуты ровно → 2.
	d = Decide(member, entryAt(now.Add(-2*time.Minute)), now)
	assert.Equal(t, 2, d.WarningMinutes)
}
