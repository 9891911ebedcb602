package observability

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// BlogViews counts recorded (non-owner) blog views.
	BlogViews = promauto.NewCounter(prometheus.CounterOpts{
		Name: "classblog_blog_views_total",
		Help: "Total number of blog views by readers other than the author",
	})

	// LikeToggles counts like toggles by resulting state.
	LikeToggles = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classblog_like_toggles_total",
		Help: "Total number of like toggles by resulting state",
	}, []string{"state"})

	// AuthorizationDenials counts refused actions by kind.
	AuthorizationDenials = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classblog_authorization_denials_total",
		Help: "Total number of denied actions",
	}, []string{"action"})

	// CommentsCreated counts new comments split by top-level and reply.
	CommentsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "classblog_comments_created_total",
		Help: "Total number of comments created",
	}, []string{"kind"})
)

// RedisErrors counts Redis errors by command.
var RedisErrors = promauto.NewCounterVec(prometheus.CounterOpts{
	Name: "classblog_redis_errors_total",
	Help: "Total number of Redis errors by command",
}, []string{"operation"})
