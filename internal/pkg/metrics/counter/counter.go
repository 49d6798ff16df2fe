package counter

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/cache"
	"github.com/ikechukwuoha/clientportalapp-render/internal/pkg/database"
)

const (
	siteRefreshesKey = "site:counters:refreshes"
)

// AddSiteRefresh increments the pending refresh counter for a site in Redis
func AddSiteRefresh(siteID uuid.UUID) error {
	ctx := context.Background()
	return cache.GetClient().HIncrBy(ctx, siteRefreshesKey, siteID.String(), 1).Err()
}

// FlushAll flushes pending counters to the database
func FlushAll() error {
	return flushHashToTable(siteRefreshesKey, "site_data", "refresh_count")
}

// isMissingKey reports whether a RENAME failed only because the source key
// does not exist (redis.Nil from the client, "ERR no such key" from the
// server).
func isMissingKey(err error) bool {
	if errors.Is(err, redis.Nil) {
		return true
	}
	return err != nil && strings.Contains(strings.ToLower(err.Error()), "no such key")
}

// flushHashToTable drains a Redis hash atomically and applies batched increments to the table.
// Uses RENAME to a temporary key for atomic drain without losing in-flight increments.
func flushHashToTable(redisKey, table, column string) error {
	ctx := context.Background()
	rdb := cache.GetClient()

	// Atomically move the hash to a temp key for draining
	tmpKey := fmt.Sprintf("%s:tmp:%d", redisKey, time.Now().UnixNano())
	if err := rdb.Do(ctx, "RENAME", redisKey, tmpKey).Err(); err != nil {
		// Missing source key means nothing accumulated since the last flush
		if isMissingKey(err) {
			return nil
		}
		return err
	}

	// Ensure cleanup of tmpKey even if later steps fail
	defer rdb.Del(ctx, tmpKey)

	data, err := rdb.HGetAll(ctx, tmpKey).Result()
	if err != nil {
		return err
	}
	if len(data) == 0 {
		return nil
	}

	// Collect ids and increments; sort ids for stable SQL
	type pair struct {
		id  string
		inc string
	}
	pairs := make([]pair, 0, len(data))
	for k, v := range data {
		if _, perr := uuid.Parse(k); perr != nil {
			continue
		}
		if v == "" || v == "0" {
			continue
		}
		pairs = append(pairs, pair{id: k, inc: v})
	}
	if len(pairs) == 0 {
		return nil
	}
	sort.Slice(pairs, func(i, j int) bool { return pairs[i].id < pairs[j].id })

	// UPDATE site_data SET <column> = <column> + CASE id WHEN ? THEN ? ... END WHERE id IN ( ... )
	var builder strings.Builder
	args := make([]interface{}, 0, len(pairs)*3)
	builder.WriteString("UPDATE ")
	builder.WriteString(table)
	builder.WriteString(" SET ")
	builder.WriteString(column)
	builder.WriteString(" = ")
	builder.WriteString(column)
	builder.WriteString(" + CASE id ")
	for _, p := range pairs {
		builder.WriteString(" WHEN ? THEN ?")
		args = append(args, p.id, p.inc)
	}
	builder.WriteString(" END WHERE id IN (")
	for i, p := range pairs {
		if i > 0 {
			builder.WriteString(",")
		}
		builder.WriteString("?")
		args = append(args, p.id)
	}
	builder.WriteString(")")

	sql := builder.String()
	db := database.GetDB()
	if err := db.Exec(sql, args...).Error; err != nil {
		return err
	}
	return nil
}
