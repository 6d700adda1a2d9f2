package main

import (
	"fmt"
	"time"

	"github.com/MarcoPoloResearchLab/tastelog/internal/activity"
	"github.com/MarcoPoloResearchLab/tastelog/internal/badgerstore"
	"github.com/MarcoPoloResearchLab/tastelog/internal/comments"
	"github.com/MarcoPoloResearchLab/tastelog/internal/config"
	"github.com/MarcoPoloResearchLab/tastelog/internal/database"
	"github.com/MarcoPoloResearchLab/tastelog/internal/feed"
	"github.com/MarcoPoloResearchLab/tastelog/internal/following"
	"github.com/MarcoPoloResearchLab/tastelog/internal/interactions"
	"github.com/MarcoPoloResearchLab/tastelog/internal/notifications"
	"github.com/MarcoPoloResearchLab/tastelog/internal/server"
	"github.com/MarcoPoloResearchLab/tastelog/internal/storage"
	"github.com/MarcoPoloResearchLab/tastelog/internal/users"
	"go.uber.org/zap"
)

// openStore opens the collection store selected by storage.driver.
func openStore(appConfig config.AppConfig, logger *zap.Logger) (storage.Store, error) {
	switch appConfig.StorageDriver {
	case config.StorageDriverSQLite:
		db, err := database.OpenSQLite(appConfig.DatabasePath, logger)
		if err != nil {
			return nil, err
		}
		return database.NewCollectionStore(db, time.Now), nil
	case config.StorageDriverBadger:
		badgerConfig := badgerstore.DefaultConfig(appConfig.BadgerPath)
		badgerConfig.GCInterval = appConfig.BadgerGCInterval
		badgerConfig.Logger = logger
		return badgerstore.Open(badgerConfig)
	case config.StorageDriverMemory:
		return storage.NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unsupported storage driver %q", appConfig.StorageDriver)
	}
}

// application holds the wired services for one process.
type application struct {
	store        storage.Store
	directory    *users.Directory
	interactions *interactions.Service
	comments     *comments.Service
	following    *following.Service
	generator    *notifications.Generator
	inbox        *notifications.Inbox
	dispatcher   *notifications.Dispatcher
	activity     *activity.Coordinator
	realtime     *server.RealtimeDispatcher
	catalog      *feed.Catalog
	origins      []string
}

func newApplication(appConfig config.AppConfig, store storage.Store, logger *zap.Logger) (*application, error) {
	directory, err := users.NewDirectory(users.DirectoryConfig{
		Current: users.Identity{
			ID:           appConfig.UserID,
			Username:     appConfig.Username,
			DisplayName:  appConfig.DisplayName,
			ProfilePhoto: appConfig.ProfilePhoto,
		},
		Known: users.SampleAuthors(),
	})
	if err != nil {
		return nil, err
	}

	interactionService, err := interactions.NewService(interactions.Config{Store: store, Clock: time.Now, Logger: logger})
	if err != nil {
		return nil, err
	}
	commentService, err := comments.NewService(comments.Config{Store: store, Logger: logger})
	if err != nil {
		return nil, err
	}
	followingService, err := following.NewService(following.Config{Store: store, Logger: logger})
	if err != nil {
		return nil, err
	}
	generator, inbox, err := notifications.New(notifications.Config{
		Store:   store,
		OwnerID: directory.CurrentUserID(),
		Clock:   time.Now,
		Logger:  logger,
	})
	if err != nil {
		return nil, err
	}

	realtime := server.NewRealtimeDispatcher()
	dispatcher := notifications.NewDispatcher(notifications.DispatcherConfig{
		Creator:   generator,
		QueueSize: appConfig.NotificationQueue,
		Logger:    logger,
		OnCreated: func(notification notifications.Notification) {
			realtime.Publish(server.RealtimeMessage{
				EventType:      server.RealtimeEventNotificationsChanged,
				PostID:         notification.PostID,
				NotificationID: notification.ID,
			})
		},
	})

	coordinator, err := activity.NewCoordinator(activity.Config{
		Interactions: interactionService,
		Comments:     commentService,
		Dispatcher:   dispatcher,
		Publisher:    realtime,
		IDProvider:   activity.NewUUIDProvider(),
		Clock:        time.Now,
		Logger:       logger,
	})
	if err != nil {
		return nil, err
	}

	return &application{
		store:        store,
		directory:    directory,
		interactions: interactionService,
		comments:     commentService,
		following:    followingService,
		generator:    generator,
		inbox:        inbox,
		dispatcher:   dispatcher,
		activity:     coordinator,
		realtime:     realtime,
		catalog:      feed.NewCatalog(feed.SamplePosts(time.Now(), directory.CurrentUserID())),
		origins:      appConfig.AllowedOrigins,
	}, nil
}

func (a *application) httpDependencies(logger *zap.Logger) server.Dependencies {
	return server.Dependencies{
		Activity:       a.activity,
		Interactions:   a.interactions,
		Comments:       a.comments,
		Following:      a.following,
		Inbox:          a.inbox,
		Catalog:        a.catalog,
		Directory:      a.directory,
		Realtime:       a.realtime,
		AllowedOrigins: a.origins,
		Clock:          time.Now,
		Logger:         logger,
	}
}
