package deploy_test

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	appsv1 "k8s.io/api/apps/v1"
	corev1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"

	"github.com/nepremicnine/user-managing/internal/deploy"
)

func newTestLinter(t *testing.T) *deploy.Linter {
	t.Helper()

	linter, err := deploy.NewLinter(deploy.LinterConfig{
		ServedHealthPaths: []string{
			"/user-managing/health/general",
			"/user-managing/health/readiness",
		},
	})
	require.NoError(t, err)

	return linter
}

// goodDeployment generates a deployment the linter is happy with by going
// through the manifest generator itself.
func goodDeployment(t *testing.T) *appsv1.Deployment {
	t.Helper()

	generator, err := deploy.NewGenerator(deploy.GeneratorConfig{})
	require.NoError(t, err)

	resp, err := generator.Generate(context.TODO(), deploy.GenerateRequest{Deployment: deploy.DefaultDeployment()})
	require.NoError(t, err)

	return resp.Deployment
}

func TestLintDeployment(t *testing.T) {
	tests := map[string]struct {
		deployment func(t *testing.T) *appsv1.Deployment
		expRules   []string
	}{
		"A generated deployment should pass every rule.": {
			deployment: goodDeployment,
		},

		"A deployment without containers should fail.": {
			deployment: func(t *testing.T) *appsv1.Deployment {
				d := goodDeployment(t)
				d.Spec.Template.Spec.Containers = nil
				return d
			},
			expRules: []string{deploy.RuleWorkloadBasics},
		},

		"A deployment with zero replicas should fail the workload basics.": {
			deployment: func(t *testing.T) *appsv1.Deployment {
				d := goodDeployment(t)
				zero := int32(0)
				d.Spec.Replicas = &zero
				return d
			},
			expRules: []string{deploy.RuleWorkloadBasics},
		},

		"A port env not matching the container port should fail the port coherence.": {
			deployment: func(t *testing.T) *appsv1.Deployment {
				d := goodDeployment(t)
				for i, env := range d.Spec.Template.Spec.Containers[0].Env {
					if env.Name == "USER_MANAGING_SERVER_PORT" {
						d.Spec.Template.Spec.Containers[0].Env[i].Value = "9999"
					}
				}
				return d
			},
			expRules: []string{deploy.RulePortCoherence},
		},

		"A probe on another port should fail the port coherence.": {
			deployment: func(t *testing.T) *appsv1.Deployment {
				d := goodDeployment(t)
				d.Spec.Template.Spec.Containers[0].ReadinessProbe.HTTPGet.Port.IntVal = 9999
				return d
			},
			expRules: []string{deploy.RulePortCoherence},
		},

		"A secret key not matching the env var name should fail the secret consistency.": {
			deployment: func(t *testing.T) *appsv1.Deployment {
				d := goodDeployment(t)
				env := d.Spec.Template.Spec.Containers[0].Env
				env[len(env)-1].ValueFrom.SecretKeyRef.Key = "another-key"
				return d
			},
			expRules: []string{deploy.RuleSecretConsistency},
		},

		"Secret env vars spread over several secrets should fail the secret consistency.": {
			deployment: func(t *testing.T) *appsv1.Deployment {
				d := goodDeployment(t)
				env := d.Spec.Template.Spec.Containers[0].Env
				env[len(env)-1].ValueFrom.SecretKeyRef.Name = "another-secret"
				return d
			},
			expRules: []string{deploy.RuleSecretConsistency},
		},

		"A missing required secret env var should fail the secret consistency.": {
			deployment: func(t *testing.T) *appsv1.Deployment {
				d := goodDeployment(t)
				env := d.Spec.Template.Spec.Containers[0].Env
				d.Spec.Template.Spec.Containers[0].Env = env[:len(env)-1]
				return d
			},
			expRules: []string{deploy.RuleSecretConsistency},
		},

		"A probe path the service doesn't serve should fail the probe paths.": {
			deployment: func(t *testing.T) *appsv1.Deployment {
				d := goodDeployment(t)
				d.Spec.Template.Spec.Containers[0].LivenessProbe.HTTPGet.Path = "/healthz"
				return d
			},
			expRules: []string{deploy.RuleProbePaths},
		},

		"A missing probe should fail the probe paths.": {
			deployment: func(t *testing.T) *appsv1.Deployment {
				d := goodDeployment(t)
				d.Spec.Template.Spec.Containers[0].ReadinessProbe = nil
				return d
			},
			expRules: []string{deploy.RuleProbePaths},
		},

		"A resource request over the limit should fail the resources rule.": {
			deployment: func(t *testing.T) *appsv1.Deployment {
				d := goodDeployment(t)
				d.Spec.Template.Spec.Containers[0].Resources.Requests[corev1.ResourceMemory] = resource.MustParse("1Gi")
				return d
			},
			expRules: []string{deploy.RuleResources},
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)

			linter := newTestLinter(t)
			errs := linter.LintDeployment(context.TODO(), test.deployment(t))

			gotRules := []string{}
			for _, err := range errs {
				for _, rule := range []string{
					deploy.RuleWorkloadBasics,
					deploy.RulePortCoherence,
					deploy.RuleSecretConsistency,
					deploy.RuleProbePaths,
					deploy.RuleResources,
				} {
					if strings.HasPrefix(err.Error(), rule+":") {
						gotRules = append(gotRules, rule)
					}
				}
			}

			assert.ElementsMatch(test.expRules, gotRules)
		})
	}
}

func TestLintManifest(t *testing.T) {
	goodManifest := `
apiVersion: apps/v1
kind: Deployment
metadata:
  name: user-managing
spec:
  replicas: 1
  selector:
    matchLabels:
      app.kubernetes.io/name: user-managing
  template:
    metadata:
      labels:
        app.kubernetes.io/name: user-managing
    spec:
      containers:
        - name: user-managing
          image: potocnikvid/nepremicnine-user-managing
          ports:
            - containerPort: 8080
          env:
            - name: USER_MANAGING_SERVER_PORT
              value: "8080"
            - name: SUPABASE_SERVICE_ROLE_KEY
              valueFrom: {secretKeyRef: {name: user-managing-secrets, key: SUPABASE_SERVICE_ROLE_KEY}}
            - name: SUPABASE_URL
              valueFrom: {secretKeyRef: {name: user-managing-secrets, key: SUPABASE_URL}}
            - name: SUPABASE_KEY
              valueFrom: {secretKeyRef: {name: user-managing-secrets, key: SUPABASE_KEY}}
            - name: SUPABASE_JWT_SECRET
              valueFrom: {secretKeyRef: {name: user-managing-secrets, key: SUPABASE_JWT_SECRET}}
            - name: FRONTEND_URL
              valueFrom: {secretKeyRef: {name: user-managing-secrets, key: FRONTEND_URL}}
            - name: BACKEND_URL
              valueFrom: {secretKeyRef: {name: user-managing-secrets, key: BACKEND_URL}}
          readinessProbe:
            httpGet: {path: /user-managing/health/readiness, port: 8080}
          livenessProbe:
            httpGet: {path: /user-managing/health/general, port: 8080}
`

	serviceDoc := `
apiVersion: v1
kind: Service
metadata:
  name: user-managing
spec:
  ports:
    - port: 8080
`

	tests := map[string]struct {
		manifest    string
		expLintErrs int
		expErr      bool
	}{
		"A correct manifest should pass.": {
			manifest: goodManifest,
		},

		"Non deployment documents should be ignored.": {
			manifest: goodManifest + "\n---\n" + serviceDoc,
		},

		"A document separator inside a block scalar should not split the document.": {
			manifest: strings.Replace(goodManifest,
				"metadata:\n  name: user-managing",
				"metadata:\n  name: user-managing\n  annotations:\n    last-applied: |\n      ---\n      inline: doc",
				1),
		},

		"A manifest without deployments should fail.": {
			manifest: serviceDoc,
			expErr:   true,
		},

		"A manifest that is not Kubernetes YAML should fail.": {
			manifest: "something: else",
			expErr:   true,
		},

		"A manifest with lint problems should return them.": {
			manifest:    strings.ReplaceAll(goodManifest, "/user-managing/health/general", "/healthz"),
			expLintErrs: 1,
		},
	}

	for name, test := range tests {
		t.Run(name, func(t *testing.T) {
			assert := assert.New(t)
			require := require.New(t)

			linter := newTestLinter(t)
			lintErrs, err := linter.LintManifest(context.TODO(), []byte(test.manifest))

			if test.expErr {
				assert.Error(err)
				return
			}

			require.NoError(err)
			assert.Len(lintErrs, test.expLintErrs)
		})
	}
}
