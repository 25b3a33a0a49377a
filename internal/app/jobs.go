package app

import (
	"time"

	"github.com/pkg/errors"
	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/bjo163/storefront/internal/domain"
	"github.com/bjo163/storefront/internal/events"
)

var cronParser = cron.NewParser(
	cron.SecondOptional | cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor,
)

func (a *Application) initJob() {
	a.sched = cron.New(cron.WithLocation(jobLocation(a.appConfig.System.Location)), cron.WithParser(cronParser))

	sweepSpec := a.appConfig.Jobs.OrphanSweepSpec
	if sweepSpec == "" {
		sweepSpec = "@every 1h"
	}
	_, err := a.sched.AddFunc(sweepSpec, func() {
		defer recoverJob("orphan sweep")
		if n, err := a.SweepOrphans(); err != nil {
			zap.L().Error("orphan sweep failed", zap.Error(err))
		} else if n > 0 {
			zap.L().Info("orphan sweep removed rows", zap.Int64("rows", n))
		}
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	_, err = a.sched.AddFunc("@daily", func() {
		defer recoverJob("admin log purge")
		if _, err := a.PurgeAdminLog(a.appConfig.Jobs.AdminLogRetentionDays); err != nil {
			zap.L().Error("admin log purge failed", zap.Error(err))
		}
	})
	if err != nil {
		zap.S().Errorf("init job error %s", err.Error())
	}

	a.sched.Start()
}

// jobLocation resolves the scheduler time zone, falling back to time.Local
// when the configured name is unknown.
func jobLocation(name string) *time.Location {
	loc, err := time.LoadLocation(name)
	if err != nil {
		zap.S().Warnf("unknown time zone %q for jobs, using %s", name, time.Local)
		return time.Local
	}
	return loc
}

func recoverJob(name string) {
	if err := recover(); err != nil {
		zap.S().Errorf("job %s panic: %v", name, err)
	}
}

// SweepOrphans removes cart lines and wishlist entries that reference a
// product which no longer exists.
func (a *Application) SweepOrphans() (int64, error) {
	var total int64
	for _, model := range []interface{}{&domain.CartLine{}, &domain.WishlistEntry{}} {
		res := a.gormDB.Where("product_id NOT IN (?)", a.gormDB.Model(&domain.Product{}).Select("id")).Delete(model)
		if res.Error != nil {
			return total, errors.Wrapf(res.Error, "sweep %T", model)
		}
		total += res.RowsAffected
	}
	return total, nil
}

// PurgeAdminLog deletes operation log entries older than days. A
// non-positive retention keeps everything.
func (a *Application) PurgeAdminLog(days int) (int64, error) {
	if days <= 0 {
		return 0, nil
	}
	res := a.gormDB.Where("created_at < ?", time.Now().Add(-time.Hour*24*time.Duration(days))).Delete(&domain.AdminLog{})
	return res.RowsAffected, errors.Wrap(res.Error, "purge admin log")
}

// subscribeAdminLog records every editor change in the operation log
func (a *Application) subscribeAdminLog() {
	write := func(ev events.RecordEvent) {
		entry := domain.AdminLog{
			UserID:    ev.Actor,
			Action:    ev.Action,
			Entity:    ev.Entity,
			RecordID:  ev.RecordID,
			Detail:    ev.Detail,
			CreatedAt: ev.At,
		}
		if err := a.gormDB.Create(&entry).Error; err != nil {
			zap.L().Error("failed to write admin log", zap.String("entity", ev.Entity), zap.Error(err))
		}
	}
	a.bus.OnRecord(events.TopicRecordSaved, write)
	a.bus.OnRecord(events.TopicRecordDeleted, write)
}
