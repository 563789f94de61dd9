package storage

import (
	"KVisit/storage/database"
	"KVisit/storage/mq"
	"KVisit/storage/redis"
)

// Options 各个进程需要的存储不同，例如 worker 不需要数据库
type Options struct {
	Database bool
	Redis    bool
	MQ       bool
}

// All 服务端使用的完整存储
var All = Options{Database: true, Redis: true, MQ: true}

// Init 统一初始化 storage 层
func Init(opts Options) error {
	if opts.Database {
		if err := database.Init(); err != nil {
			return err
		}
	}

	if opts.Redis {
		if err := redis.Init(); err != nil {
			return err
		}
	}

	if opts.MQ {
		if err := mq.Init(); err != nil {
			return err
		}
	}

	return nil
}
