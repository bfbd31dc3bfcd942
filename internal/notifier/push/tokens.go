package push

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/redis/go-redis/v9"
)

// DeviceTokens is the registry of push device tokens, one Redis set per
// user. The API service writes it on device registration; the notifier
// reads it when a targeted event finds no live session.
type DeviceTokens struct {
	rdb    *redis.Client
	logger *slog.Logger
}

func NewDeviceTokens(rdb *redis.Client, logger *slog.Logger) *DeviceTokens {
	return &DeviceTokens{
		rdb:    rdb,
		logger: logger,
	}
}

func tokenKey(userID string) string {
	return fmt.Sprintf("device_tokens:%s", userID)
}

// Register adds a device token for the user.
func (d *DeviceTokens) Register(ctx context.Context, userID, token string) error {
	if err := d.rdb.SAdd(ctx, tokenKey(userID), token).Err(); err != nil {
		return fmt.Errorf("failed to register device token: %w", err)
	}

	d.logger.Debug("Device token registered",
		slog.String("user_id", userID),
	)

	return nil
}

// Remove deletes a device token for the user.
func (d *DeviceTokens) Remove(ctx context.Context, userID, token string) error {
	if err := d.rdb.SRem(ctx, tokenKey(userID), token).Err(); err != nil {
		return fmt.Errorf("failed to remove device token: %w", err)
	}

	return nil
}

// Tokens returns all device tokens registered for the user.
func (d *DeviceTokens) Tokens(ctx context.Context, userID string) ([]string, error) {
	tokens, err := d.rdb.SMembers(ctx, tokenKey(userID)).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to load device tokens: %w", err)
	}

	return tokens, nil
}
