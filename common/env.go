package common

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

// LoadEnv 从.env文件加载环境变量,已存在的环境变量不会被覆盖,不存在的文件被忽略
func LoadEnv(files ...string) error {
	for _, f := range files {
		if f == "" {
			continue
		}
		exist, err := FileLoader.Exist(f)
		if err != nil {
			return err
		}
		if !exist {
			Debugf("env file %s not exist,skip", f)
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return err
		}
		Infof("load env from:%s", f)
	}
	return nil
}

// FirstEnv 按顺序返回第一个非空的环境变量值
func FirstEnv(names ...string) string {
	for _, name := range names {
		if v := strings.TrimSpace(os.Getenv(name)); v != "" {
			return v
		}
	}
	return ""
}
