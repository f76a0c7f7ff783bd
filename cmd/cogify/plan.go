package main

import (
	"fmt"
	"strings"

	"github.com/alessio/shellescape"
	wfv1 "github.com/argoproj/argo-workflows/v3/pkg/apis/workflow/v1alpha1"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	k8sv1 "k8s.io/api/core/v1"
	"k8s.io/apimachinery/pkg/api/resource"
	k8smeta "k8s.io/apimachinery/pkg/apis/meta/v1"
	"k8s.io/apimachinery/pkg/util/intstr"
	"sigs.k8s.io/yaml"

	"github.com/rasterkit/cogify"
	"github.com/rasterkit/cogify/mapping"
)

var (
	shell       bool
	jobid       string
	dockerImage string

	defaultImage = "build-error-this-variable-should-have-been-set-on-build"
)

// memory requests per size tier, sized from each tier's warp memory
// limit plus gdal caching overhead
var tierMemory = map[cogify.SizeTier]string{
	cogify.TierSmall:      "2G",
	cogify.TierLarge:      "4G",
	cogify.TierUltraLarge: "8G",
}

var planCmd = &cobra.Command{
	Use:   "plan --mapping mapping.csv --srcBucket raw-data --dst s3://cog-data",
	Short: "emit an argo workflow (or shell script) converting every file of a mapping",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		recs, err := mapping.ReadFile(mappingFile)
		if err != nil {
			return err
		}
		if len(recs) == 0 {
			return fmt.Errorf("mapping %s is empty", mappingFile)
		}
		dstBase = strings.TrimSuffix(dstBase, "/")
		if jobid == "" {
			jobid = uuid.New().String()
		}

		if shell {
			fmt.Println("set -e")
			for _, rec := range recs {
				fmt.Println(shellescape.QuoteCommand(convertCommand(rec)))
			}
			return nil
		}

		wf, err := buildWorkflow(recs)
		if err != nil {
			return err
		}
		yb, err := yaml.Marshal(wf)
		if err != nil {
			return fmt.Errorf("marshal workflow: %w", err)
		}
		fmt.Println(string(yb))
		return nil
	},
}

func init() {
	addConvertFlags(planCmd)
	flags := planCmd.Flags()
	flags.StringVar(&mappingFile, "mapping", "", "csv mapping produced by list --csv")
	flags.StringVar(&srcBucket, "srcBucket", "", "bucket holding the source objects")
	flags.StringVar(&dstBase, "dst", "", "destination base url, e.g. s3://cog-data")
	flags.IntVar(&parallelism, "parallel", 4, "number of files converted concurrently")
	flags.StringVar(&jobid, "jobID", "", "(advanced) use predefined job identifier")
	flags.StringVar(&dockerImage, "dockerImage", defaultImage, "docker image for workers")
	flags.BoolVar(&shell, "shell", false, "output shell script instead of argo workflow")
	planCmd.MarkFlagRequired("mapping")
	planCmd.MarkFlagRequired("srcBucket")
	planCmd.MarkFlagRequired("dst")
}

// convertCommand builds the argument vector a worker runs for one
// mapping record, forwarding the relevant conversion flags.
func convertCommand(rec mapping.Record) []string {
	cmd := []string{"cogify", "convert",
		"s3://" + srcBucket + "/" + rec.SourceKey,
		dstBase + "/" + rec.OutputKey}
	if rec.DataType != "" {
		cmd = append(cmd, "--dtype", rec.DataType)
	}
	if overwrite {
		cmd = append(cmd, "--overwrite")
	}
	if noReproject {
		cmd = append(cmd, "--noReproject")
	}
	if useCOGDriver {
		cmd = append(cmd, "--cogDriver")
	}
	if reprojMethod != "" {
		cmd = append(cmd, "--reprojResampling", reprojMethod)
	}
	if ovrMethod != "" {
		cmd = append(cmd, "--ovrResampling", ovrMethod)
	}
	if nodataStr != "" {
		cmd = append(cmd, "--nodata", nodataStr)
	}
	if targetSRS != cogify.DefaultTargetSRS {
		cmd = append(cmd, "--srs", targetSRS)
	}
	if extraSw != "" {
		cmd = append(cmd, "--switches", extraSw)
	}
	if noVerify {
		cmd = append(cmd, "--noVerify")
	}
	for _, co := range configOpts {
		cmd = append(cmd, "--config", co)
	}
	return cmd
}

// buildWorkflow groups the mapping's files into batches of `parallelism`
// parallel steps. Retry limits and memory requests follow each file's
// size tier.
func buildWorkflow(recs []mapping.Record) (*wfv1.Workflow, error) {
	wf := &wfv1.Workflow{
		ObjectMeta: k8smeta.ObjectMeta{
			GenerateName: "cogify-",
			Labels: map[string]string{
				"cogify/jobid": jobid,
			},
		},
		TypeMeta: k8smeta.TypeMeta{
			APIVersion: "argoproj.io/v1alpha1",
			Kind:       "Workflow",
		},
		Spec: wfv1.WorkflowSpec{
			TTLStrategy: &wfv1.TTLStrategy{
				SecondsAfterSuccess: int32Ptr(3600),
			},
			Entrypoint: "cogify",
			TemplateDefaults: &wfv1.Template{
				Volumes: []k8sv1.Volume{
					{
						Name: "scratch",
						VolumeSource: k8sv1.VolumeSource{
							EmptyDir: &k8sv1.EmptyDirVolumeSource{
								SizeLimit: resourcePtr("20G"),
							},
						},
					},
				},
				Container: &k8sv1.Container{
					ImagePullPolicy: k8sv1.PullAlways,
					Resources: k8sv1.ResourceRequirements{
						Requests: k8sv1.ResourceList{
							k8sv1.ResourceCPU:    resource.MustParse("2"),
							k8sv1.ResourceMemory: resource.MustParse("2G"),
						},
					},
					WorkingDir: "/scratch",
					VolumeMounts: []k8sv1.VolumeMount{
						{
							Name:      "scratch",
							MountPath: "/scratch",
						},
					},
				},
			},
			Templates: []wfv1.Template{
				{Name: "cogify"},
			},
		},
	}

	width := parallelism
	if width < 1 {
		width = 1
	}
	ps := wfv1.ParallelSteps{}
	for i, rec := range recs {
		tier, err := cogify.TierFor(rec.SizeBytes)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", rec.SourceKey, err)
		}
		chunk := tier.Chunking()
		step := wfv1.WorkflowStep{
			Name: fmt.Sprintf("convert-%d", i),
			Inline: &wfv1.Template{
				RetryStrategy: &wfv1.RetryStrategy{
					Limit: intOrStringPtr(chunk.MaxRetries),
				},
				Metadata: wfv1.Metadata{
					Annotations: map[string]string{
						"cluster-autoscaler.kubernetes.io/safe-to-evict": "false",
					},
				},
				Container: &k8sv1.Container{
					Name:    "convert",
					Image:   dockerImage,
					Command: convertCommand(rec),
					Resources: k8sv1.ResourceRequirements{
						Requests: k8sv1.ResourceList{
							k8sv1.ResourceCPU:    resource.MustParse("2"),
							k8sv1.ResourceMemory: resource.MustParse(tierMemory[tier]),
						},
					},
				},
			},
		}
		ps.Steps = append(ps.Steps, step)
		if len(ps.Steps) == width {
			wf.Spec.Templates[0].Steps = append(wf.Spec.Templates[0].Steps, ps)
			ps = wfv1.ParallelSteps{}
		}
	}
	if len(ps.Steps) > 0 {
		wf.Spec.Templates[0].Steps = append(wf.Spec.Templates[0].Steps, ps)
	}
	return wf, nil
}

func int32Ptr(val int32) *int32 {
	a := val
	return &a
}

func intOrStringPtr(val int) *intstr.IntOrString {
	a := intstr.FromInt(val)
	return &a
}

func resourcePtr(val string) *resource.Quantity {
	res := resource.MustParse(val)
	return &res
}
