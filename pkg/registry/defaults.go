package registry

import (
	"log/slog"
	"net/http"

	"github.com/Lazi-Labs/lazi-sub001/pkg/actions/apicall"
	"github.com/Lazi-Labs/lazi-sub001/pkg/actions/condition"
	"github.com/Lazi-Labs/lazi-sub001/pkg/actions/delay"
	"github.com/Lazi-Labs/lazi-sub001/pkg/actions/notify"
	"github.com/Lazi-Labs/lazi-sub001/pkg/actions/updatestage"
	"github.com/Lazi-Labs/lazi-sub001/pkg/entities"
	"github.com/Lazi-Labs/lazi-sub001/pkg/jobs"
)

// Dependencies are the collaborators the built-in handlers need.
type Dependencies struct {
	Logger     *slog.Logger
	Queue      jobs.Queue
	Entities   entities.Store
	HTTPClient *http.Client
}

// RegisterDefaults installs every built-in action handler.
func (r *Registry) RegisterDefaults(deps Dependencies) {
	logger := deps.Logger
	if logger == nil {
		logger = r.logger
	}

	var source entities.Source
	if deps.Entities != nil {
		source = deps.Entities
	}

	r.Register(delay.NewHandler())
	r.Register(condition.NewHandler(logger, source))
	r.Register(notify.NewSMSHandler(logger, deps.Queue, source))
	r.Register(notify.NewEmailHandler(logger, deps.Queue, source))
	r.Register(updatestage.NewHandler(logger, deps.Entities, deps.Queue))
	r.Register(apicall.NewHandler(logger, deps.HTTPClient))

	r.logger.Info("Registered built-in action handlers", "actions", r.Types())
}
