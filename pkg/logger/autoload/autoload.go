package autoload

import (
	configx "github.com/aryanranjan/aria/pkg/config"
	logx "github.com/aryanranjan/aria/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOGGER")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
