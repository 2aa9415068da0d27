// Package redis connects to Redis for the checkout service and exposes a
// readiness check for it.
//
// The pending plan selection store is the only Redis consumer; it accepts the
// returned client as a redis.UniversalClient.
//
//	if cfg.Enabled() {
//		client, err := redis.Connect(ctx, cfg)
//		if err != nil {
//			return err
//		}
//		defer client.Close()
//		store := pending.NewRedisStore(client, pendingCfg)
//	}
package redis
