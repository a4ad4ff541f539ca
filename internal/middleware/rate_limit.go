package middleware

import (
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RateLimit limite à max requêtes par fenêtre, par utilisateur connecté ou à défaut par IP.
// Le compteur vit dans Redis (INCR et TTL dans une transaction, EXPIRE tant que la clé n'expire pas) ;
// si Redis est indisponible la requête passe.
func RateLimit(rdb redis.UniversalClient, name string, max int, window time.Duration, log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		who := c.GetString(ContextUserID)
		if who == "" {
			who = c.ClientIP()
		}
		key := fmt.Sprintf("rate:%s:%s", name, who)
		ctx := c.Request.Context()

		var (
			incr *redis.IntCmd
			ttl  *redis.DurationCmd
		)
		_, err := rdb.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
			incr = pipe.Incr(ctx, key)
			ttl = pipe.TTL(ctx, key)
			return nil
		})
		// clé sans expiration (premier appel, ou EXPIRE perdu) : on la réarme
		retry := ttl.Val()
		if err == nil && retry < 0 {
			err = rdb.Expire(ctx, key, window).Err()
			retry = window
		}
		if err != nil {
			log.Warn("⚠️ rate limit indisponible", zap.String("key", key), zap.Error(err))
			c.Next()
			return
		}

		count := int(incr.Val())
		if count > max {
			c.Header("Retry-After", fmt.Sprintf("%d", int(retry.Seconds())))
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{
				"error":       "Trop de requêtes. Réessayez plus tard",
				"retry_after": int(retry.Seconds()),
			})
			return
		}

		c.Header("X-RateLimit-Limit", fmt.Sprintf("%d", max))
		c.Header("X-RateLimit-Remaining", fmt.Sprintf("%d", max-count))
		c.Next()
	}
}
