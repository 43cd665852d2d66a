package server

import (
	"context"
	"time"

	"github.com/golang/glog"

	"github.com/lumenblog/lumen/models"
)

// Field name   | Mandatory? | Allowed values  | Allowed special characters
// ----------   | ---------- | --------------  | --------------------------
// Seconds      | Yes        | 0-59            | * / , -
// Minutes      | Yes        | 0-59            | * / , -
// Hours        | Yes        | 0-23            | * / , -
// Day of month | Yes        | 1-31            | * / , - ?
// Month        | Yes        | 1-12 or JAN-DEC | * / , -
// Day of week  | Yes        | 0-6 or SUN-SAT  | * / , - ?

const cleanupTimeout = 10 * time.Minute

func jobs(env *models.Env) map[string]func() {
	return map[string]func(){
		//SS MI HH  DOM MON DOW
		"  0 */5    *    *   *   *": func() { logCacheStats(env) },     // Every 5 minutes
		"  0 30     3    *   *   *": func() { cleanOrphanImages(env) }, // Every day at 3.30am
	}
}

func logCacheStats(env *models.Env) {
	if env.Perf == nil || env.Cache == nil {
		return
	}

	env.Perf.LogCacheStats(env.Cache.GetStats())
}

func cleanOrphanImages(env *models.Env) {
	if env.Storage == nil || env.DB == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), cleanupTimeout)
	defer cancel()

	report, err := models.CleanOrphanImages(ctx, env, false)
	if err != nil {
		glog.Errorf("models.CleanOrphanImages() %+v", err)
		return
	}

	for _, line := range report.Lines() {
		glog.Info(line)
	}
}
