// Package mongo provides MongoDB connection management for services that use
// the Mongo-backed notification storage.
//
// Configuration comes from environment variables, connection attempts retry
// so a service restart survives a briefly unavailable replica set, and the
// pool defaults suit a portal-sized workload without manual tuning.
//
// # Usage
//
//	var cfg mongo.Config
//	if err := config.Load(&cfg); err != nil {
//		panic(err)
//	}
//
//	ctx := context.Background()
//	db, err := mongo.NewWithDatabase(ctx, cfg, "visaportal")
//	if err != nil {
//		panic(err)
//	}
//
//	store, err := notification.NewMongoStorage(db)
//	if err != nil {
//		panic(err)
//	}
//	if err := store.EnsureIndexes(ctx); err != nil {
//		panic(err)
//	}
//
// Healthcheck returns a func(context.Context) error suitable for readiness
// probes and HTTP health endpoints.
package mongo
