// Package redis provides Redis connection management with environment-based
// configuration and startup retries.
//
// Two components build on it: dispatch.RedisClaimer keeps delivery leases in
// Redis keys with TTL, and channel.InAppAdapter publishes in-app
// notifications over pub/sub so connected portal sessions update live.
//
// # Usage
//
//	var cfg redis.Config
//	if err := config.Load(&cfg); err != nil {
//		panic(err)
//	}
//
//	rdb, err := redis.Connect(context.Background(), cfg)
//	if err != nil {
//		panic(err)
//	}
//	defer rdb.Close()
//
//	claimer := dispatch.NewRedisClaimer(rdb, store, "")
//	inApp := channel.NewInAppAdapter(channel.WithRealtimePublisher(rdb, ""))
//
// Healthcheck returns a func(context.Context) error suitable for readiness
// probes and HTTP health endpoints.
package redis
